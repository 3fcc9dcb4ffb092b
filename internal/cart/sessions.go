package cart

import "sync"

// Sessions keeps one live cart engine per cashier. A cart lives purely in
// memory and is dropped (replaced by an empty one) after checkout or an
// explicit clear.
type Sessions struct {
	mu        sync.Mutex
	engines   map[string]*Engine
	submitter Submitter
}

func NewSessions(submitter Submitter) *Sessions {
	return &Sessions{
		engines:   make(map[string]*Engine),
		submitter: submitter,
	}
}

// Get returns the cashier's engine, creating an empty one on first use.
func (s *Sessions) Get(userID string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[userID]
	if !ok {
		e = NewEngine(userID, s.submitter)
		s.engines[userID] = e
	}
	return e
}

// Drop discards the cashier's engine; the next Get starts an empty cart.
func (s *Sessions) Drop(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, userID)
}
