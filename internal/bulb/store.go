package bulb

import (
	"sync"
	"time"
)

// Store is the in-memory cache of bulb state.
//
// The bulb set is fixed at construction; entries are never added or
// removed at runtime. All reads return deep copies, so callers never
// observe a partially applied update.
//
// All public methods are thread-safe.
type Store struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewStore creates a store seeded from the bulb name to address map.
// Every bulb starts offline with the default poll interval; the first
// poll round establishes real state.
func NewStore(bulbs map[string]string) *Store {
	states := make(map[string]*State, len(bulbs))
	for name, address := range bulbs {
		states[name] = &State{
			Name:         name,
			Address:      address,
			PollInterval: defaultPollInterval,
		}
	}
	return &Store{states: states}
}

// Get retrieves a bulb's state by name.
// Returns ErrBulbNotFound if the bulb is not configured.
// The returned state is a deep copy; callers can safely modify it.
func (s *Store) Get(name string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[name]
	if !ok {
		return nil, ErrBulbNotFound
	}
	return state.DeepCopy(), nil
}

// List returns the state of every configured bulb.
// The returned states are deep copies; callers can safely modify them.
func (s *Store) List() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]State, 0, len(s.states))
	for _, state := range s.states {
		states = append(states, *state.DeepCopy())
	}
	return states
}

// Names returns the names of every configured bulb.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.states))
	for name := range s.states {
		names = append(names, name)
	}
	return names
}

// Has reports whether a bulb with the given name is configured.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.states[name]
	return ok
}

// Update applies fn to the named bulb's state under the write lock and
// returns a deep copy of the result. All fields touched by fn become
// visible to readers atomically.
// Returns ErrBulbNotFound if the bulb is not configured.
func (s *Store) Update(name string, fn func(*State)) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[name]
	if !ok {
		return nil, ErrBulbNotFound
	}

	fn(state)
	return state.DeepCopy(), nil
}

// LastCommandAt returns when a command was last issued to the bulb.
// The zero time is returned for unknown bulbs.
func (s *Store) LastCommandAt(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[name]
	if !ok {
		return time.Time{}
	}
	return state.LastCommandAt
}
