package session

import "sync"

// Registry is a concurrency-safe mapping from serial number to Session. Each
// exported operation is atomic on its own; the admission path additionally
// serializes every mutation behind the acceptor's critical section so that
// size checks, throttle updates, and eviction sweeps observe a consistent
// joint snapshot.
type Registry struct {
	m map[uint32]*Session
	sync.RWMutex
}

// NewRegistry creates and returns a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[uint32]*Session)}
}

// Insert adds a session keyed by its serial number. Serial numbers are unique
// by construction, so an insert never overwrites a live entry.
//
// Parameters:
//   - s: The session to register
func (r *Registry) Insert(s *Session) {
	r.Lock()
	defer r.Unlock()
	r.m[s.SerialNo()] = s
}

// Get returns the session registered under the given serial number, if present.
//
// Parameters:
//   - serialNo: The serial number to look up
//
// Returns:
//   - The session and true if found, or nil and false otherwise
func (r *Registry) Get(serialNo uint32) (*Session, bool) {
	r.RLock()
	defer r.RUnlock()
	s, ok := r.m[serialNo]
	return s, ok
}

// Remove deletes the entry for the given serial number. Removing a serial
// number that is not registered is a no-op, not an error.
//
// Parameters:
//   - serialNo: The serial number to remove
func (r *Registry) Remove(serialNo uint32) {
	r.Lock()
	defer r.Unlock()
	delete(r.m, serialNo)
}

// Len returns the number of registered sessions.
//
// Returns:
//   - The current session count
func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.m)
}

// Range calls f for each registered session until f returns false. The
// registry must not be modified from within f.
//
// Parameters:
//   - f: Function called for each session; return false to stop iteration
func (r *Registry) Range(f func(s *Session) bool) {
	r.RLock()
	defer r.RUnlock()
	for _, s := range r.m {
		if !f(s) {
			return
		}
	}
}

// RemoveIf removes every session for which pred returns true and returns the
// removed sessions. The scan and the removals happen under one lock
// acquisition, so no concurrent insert can land between the match and the
// delete. Used by the eviction sweep and by shutdown.
//
// Parameters:
//   - pred: Predicate selecting the sessions to remove
//
// Returns:
//   - The sessions that were removed
func (r *Registry) RemoveIf(pred func(s *Session) bool) []*Session {
	r.Lock()
	defer r.Unlock()

	var removed []*Session
	for sn, s := range r.m {
		if pred(s) {
			delete(r.m, sn)
			removed = append(removed, s)
		}
	}

	return removed
}
