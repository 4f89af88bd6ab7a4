package trust

import (
	"context"
	"sync"
)

// Store persists user trust states. Update must serialize concurrent calls
// for the same user: apply always sees the latest committed state, and no
// committed update is lost.
type Store interface {
	// Update atomically transforms one user's state via apply and returns
	// the committed result. Unknown users are materialized with
	// NewUserTrustState before apply runs.
	Update(ctx context.Context, userID string, apply func(UserTrustState) UserTrustState) (UserTrustState, error)

	// Get returns the user's current state, or the pristine default for an
	// unknown user.
	Get(ctx context.Context, userID string) (UserTrustState, error)
}

// MemoryStore is an in-process Store guarded by a single mutex. Suitable for
// single-node deployments and tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]UserTrustState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]UserTrustState)}
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, userID string, apply func(UserTrustState) UserTrustState) (UserTrustState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		state = NewUserTrustState(userID)
	}
	next := apply(state)
	s.states[userID] = next
	return next, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, userID string) (UserTrustState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return NewUserTrustState(userID), nil
	}
	return state, nil
}
