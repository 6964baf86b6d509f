package inject

import (
	"encoding/json"
	"fmt"
)

// Scope specifies how long an instance produced by a binding lives.
// Scope is fixed when the binding is registered.
type Scope int

const (
	// Unscoped bindings produce a new instance on every resolution.
	// The caller owns the instance.
	Unscoped Scope = iota

	// Singleton bindings produce one instance per Injector. The instance is
	// created lazily on first resolution (or at Freeze with
	// WithEagerSingletons) and reused for the lifetime of the Injector.
	Singleton
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	switch s {
	case Unscoped:
		return "Unscoped"
	case Singleton:
		return "Singleton"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsValid checks if the scope is valid.
func (s Scope) IsValid() bool {
	return s >= Unscoped && s <= Singleton
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, ScopeError{Value: int(s)}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Unscoped", "unscoped":
		*s = Unscoped
	case "Singleton", "singleton":
		*s = Singleton
	default:
		return ScopeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scope) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	return s.UnmarshalText([]byte(str))
}
