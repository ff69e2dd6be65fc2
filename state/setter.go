package state

// Setter enqueues typed updates for one key of a store. The zero Setter is
// not usable; obtain one from Declare.
type Setter[T any] struct {
	store *Store
	key   string
}

// Declare initializes key with initial on first declaration and returns the
// current value together with a typed setter for it. A stored value of a
// different dynamic type reads as the zero value of T.
func Declare[T any](s *Store, key string, initial T) (T, Setter[T]) {
	v := s.DeclareRaw(key, initial)
	t, _ := v.(T)
	return t, Setter[T]{store: s, key: key}
}

// Key returns the key this setter writes to.
func (st Setter[T]) Key() string { return st.key }

// Set enqueues a direct value update, applied at the next round boundary.
func (st Setter[T]) Set(v T) {
	st.store.Set(st.key, v)
}

// Update enqueues a functional update. At flush time fn receives the value
// as resolved at that point; enqueued updates for the same key compose in
// order.
func (st Setter[T]) Update(fn func(T) T) {
	st.store.Update(st.key, func(cur any) any {
		t, _ := cur.(T)
		return fn(t)
	})
}
