package courier

import "sync"

// Key names a side channel entry holding values of type T.
type Key[T any] struct {
	name string
}

func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

func (k Key[T]) String() string { return k.name }

// sideChannel is the request-scoped metadata store. Entries are set by
// whoever issues the request and read back by the caller after delivery.
type sideChannel struct {
	mu     sync.RWMutex
	values map[string]any
}

func (s *sideChannel) set(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[name] = v
}

func (s *sideChannel) get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// SetValue attaches v to the request under key.
func SetValue[T any](r *Request, key Key[T], v T) {
	r.side.set(key.name, v)
}

// Lookup returns the value stored under key. Absence is reported with ok
// false; so is a value stored under the same name with a different type.
func Lookup[T any](r *Request, key Key[T]) (v T, ok bool) {
	raw, found := r.side.get(key.name)
	if !found {
		return v, false
	}
	v, ok = raw.(T)
	return v, ok
}
