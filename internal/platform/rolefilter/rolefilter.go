// Package rolefilter narrows loaded collections to the rows an acting role may
// see. Every function here is pure.
package rolefilter

type mode uint8

const (
	modeNone mode = iota
	modeAll
	modeKey
)

// Scope is the visibility rule of one role over records of type T. The zero
// Scope shows nothing.
type Scope[T any] struct {
	mode mode
	key  func(T) int64
}

// All shows every record.
func All[T any]() Scope[T] { return Scope[T]{mode: modeAll} }

// None shows no record.
func None[T any]() Scope[T] { return Scope[T]{mode: modeNone} }

// ByKey shows records whose key equals the acting role id.
func ByKey[T any](key func(T) int64) Scope[T] {
	return Scope[T]{mode: modeKey, key: key}
}

// Visible reports whether the scope can show any record at all.
func (s Scope[T]) Visible() bool { return s.mode != modeNone }

// KeyOf returns the record's key for key-based scopes.
func (s Scope[T]) KeyOf(rec T) (int64, bool) {
	if s.mode != modeKey || s.key == nil {
		return 0, false
	}
	return s.key(rec), true
}

// Apply filters records for an actor whose role id is actingID.
func (s Scope[T]) Apply(records []T, actingID *int64) []T {
	switch s.mode {
	case modeAll:
		out := make([]T, len(records))
		copy(out, records)
		return out
	case modeKey:
		return Filter(records, s.key, actingID)
	}
	return []T{}
}

// Filter keeps the records whose key equals *actingID, preserving order. A nil
// actingID yields an empty result.
func Filter[T any](records []T, key func(T) int64, actingID *int64) []T {
	out := []T{}
	if actingID == nil || key == nil {
		return out
	}
	for _, r := range records {
		if key(r) == *actingID {
			out = append(out, r)
		}
	}
	return out
}
