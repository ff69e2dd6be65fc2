// Package state implements the persistent key/value store shared by the
// rounds of an engine run. Reads always observe the values as resolved at the
// start of the current round; writes enqueue deferred updates that the engine
// applies in enqueue order at the round boundary. The store is not safe for
// concurrent use: the engine runs builders, effects and tool handlers on a
// single goroutine.
package state

// update is one pending mutation. A nil fn marks a direct value set.
type update struct {
	key   string
	value any
	fn    func(any) any
}

// Store holds persistent engine state across rounds.
type Store struct {
	values  map[string]any
	pending []update
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// DeclareRaw initializes key with initial on its first declaration and
// returns the current value. Later declarations leave the stored value
// untouched. Typed callers should prefer Declare.
func (s *Store) DeclareRaw(key string, initial any) any {
	if _, ok := s.values[key]; !ok {
		s.values[key] = initial
	}
	return s.values[key]
}

// Get returns the current value for key. Absent keys yield (nil, false);
// absence is an expected condition, not an error.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set enqueues a direct value update for key.
func (s *Store) Set(key string, value any) {
	s.pending = append(s.pending, update{key: key, value: value})
}

// Update enqueues a functional update for key. At flush time fn receives the
// value as resolved at that point, so sequential updates compose.
func (s *Store) Update(key string, fn func(any) any) {
	s.pending = append(s.pending, update{key: key, fn: fn})
}

// Flush applies all pending updates in enqueue order and clears the queue.
// It returns the number of updates applied.
func (s *Store) Flush() int {
	n := len(s.pending)
	for _, u := range s.pending {
		if u.fn == nil {
			s.values[u.key] = u.value
			continue
		}
		s.values[u.key] = u.fn(s.values[u.key])
	}
	s.pending = nil
	return n
}

// Pending reports the number of enqueued updates not yet applied.
func (s *Store) Pending() int {
	return len(s.pending)
}

// Snapshot returns a shallow copy of the current values.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	return len(s.values)
}
