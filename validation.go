package inject

// problems returns every unsatisfied dependency and Direct cycle reachable
// from the explicit bindings.
func (t *bindingTable) problems() []error {
	errs := t.graph.Validate()
	for i, err := range errs {
		errs[i] = fromGraph(err)
	}
	return errs
}

// scopeConflicts returns every Singleton that reaches a stateful Unscoped
// binding through Direct edges. The walk stops at other Singletons, which are
// checked on their own.
func (t *bindingTable) scopeConflicts() []ScopeConflictError {
	var conflicts []ScopeConflictError

	for _, key := range t.keys() {
		root, ok := t.get(key)
		if !ok || root.Scope != Singleton {
			continue
		}

		seen := map[Key]bool{key: true}

		var walk func(from *Binding, path []Key)
		walk = func(from *Binding, path []Key) {
			for _, edge := range from.Dependencies() {
				if edge.Indirection != Direct || seen[edge.To] {
					continue
				}
				seen[edge.To] = true

				dep, err := t.lookup(edge.To, from.Key)
				if err != nil || dep.Scope == Singleton {
					continue
				}

				depPath := append(path[:len(path):len(path)], edge.To)
				if dep.Stateful {
					conflicts = append(conflicts, ScopeConflictError{
						Key:        key,
						Dependency: edge.To,
						Path:       depPath,
					})
				}
				walk(dep, depPath)
			}
		}
		walk(root, []Key{key})
	}

	return conflicts
}
