package inject

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// checkDescriptor validates a Constructor descriptor at registration. In
// compliance mode multiple qualifiers, unassignable fields and injection
// points out of the standard order are rejected; otherwise the first two are
// logged and tolerated.
func checkDescriptor(key Key, d *Descriptor, compliance bool, logger *zap.Logger) error {
	if d.Build == nil {
		return fmt.Errorf("binding %s: %w", key, ErrNilBuild)
	}

	if d.Constructors > 1 {
		return AmbiguousBindingError{
			Key:    key,
			Reason: fmt.Sprintf("%d candidate constructors", d.Constructors),
		}
	}

	for _, dep := range d.Dependencies {
		if dep.Key.Type == nil {
			return fmt.Errorf("%s of %s: %w", dep.point(), key, ErrNilKeyType)
		}

		qualifiers := dep.Qualifiers
		if len(qualifiers) == 0 && dep.Key.Qualifier != nil {
			qualifiers = []any{dep.Key.Qualifier}
		}
		for _, q := range qualifiers {
			if q != nil && !reflect.TypeOf(q).Comparable() {
				return InvalidQualifierError{
					Key:        key,
					Point:      dep.point(),
					Qualifiers: qualifiers,
					Reason:     "qualifier is not comparable",
				}
			}
		}

		if len(dep.Qualifiers) > 1 {
			if compliance {
				return InvalidQualifierError{
					Key:        key,
					Point:      dep.point(),
					Qualifiers: dep.Qualifiers,
					Reason:     "more than one qualifier",
				}
			}
			logger.Warn("multiple qualifiers on injection point, using the first",
				zap.Stringer("key", key),
				zap.String("point", dep.point()),
				zap.Any("qualifier", dep.Key.Qualifier))
		}

		if dep.Target == Field && dep.Immutable {
			if compliance {
				return UnsupportedInjectionTargetError{Key: key, Point: dep.point()}
			}
			logger.Warn("field is not assignable and will not be injected",
				zap.Stringer("key", key),
				zap.String("point", dep.point()))
		}
	}

	if compliance {
		return checkOrder(key, d.Dependencies)
	}
	return nil
}

// checkOrder verifies that constructor parameters come first, then members
// from the deepest embedding level outward, fields before methods per level.
func checkOrder(key Key, deps []Dependency) error {
	maxLevel := 0
	for _, dep := range deps {
		if dep.Target != ConstructorParam {
			maxLevel = max(maxLevel, dep.Level)
		}
	}

	// rank orders injection points as (member, outwardness, method).
	rank := func(dep Dependency) [3]int {
		switch dep.Target {
		case Field:
			return [3]int{1, maxLevel - dep.Level, 0}
		case Method:
			return [3]int{1, maxLevel - dep.Level, 1}
		default:
			return [3]int{}
		}
	}

	for i := 1; i < len(deps); i++ {
		prev, cur := rank(deps[i-1]), rank(deps[i])

		switch {
		case cur[0] < prev[0]:
			return SpecViolationError{Key: key, Point: deps[i].point(), Reason: "constructor parameters must precede members"}
		case cur[0] == prev[0] && cur[1] < prev[1]:
			return SpecViolationError{Key: key, Point: deps[i].point(), Reason: "embedded structs must be injected before the structs embedding them"}
		case cur[0] == prev[0] && cur[1] == prev[1] && cur[2] < prev[2]:
			return SpecViolationError{Key: key, Point: deps[i].point(), Reason: "fields must be injected before methods"}
		}
	}

	return nil
}
