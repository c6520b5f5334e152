package db

import (
	"context"
	"sort"
	"sync"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
)

// MemoryStore is an in-memory MovementStore and HolderStore for tests and
// local development. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	movements map[Ledger]map[string]*classify.Movement
	order     map[Ledger][]string // insertion order of signatures
	holders   map[string]Holder
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		movements: map[Ledger]map[string]*classify.Movement{
			LedgerAllAssets: {},
			LedgerTracked:   {},
		},
		order: map[Ledger][]string{
			LedgerAllAssets: nil,
			LedgerTracked:   nil,
		},
		holders: make(map[string]Holder),
	}
}

// Compile-time interface checks.
var (
	_ MovementStore = (*MemoryStore)(nil)
	_ HolderStore   = (*MemoryStore)(nil)
)

// InsertMovement appends a movement unless its signature is already present.
func (s *MemoryStore) InsertMovement(_ context.Context, ledger Ledger, m *classify.Movement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLedger, ok := s.movements[ledger]
	if !ok {
		return false, ErrUnknownLedger
	}
	if _, exists := byLedger[m.Signature]; exists {
		return false, nil
	}

	clone := *m
	byLedger[m.Signature] = &clone
	s.order[ledger] = append(s.order[ledger], m.Signature)
	return true, nil
}

// GetMovement fetches one movement by signature, or ErrNotFound.
func (s *MemoryStore) GetMovement(_ context.Context, ledger Ledger, signature string) (*classify.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLedger, ok := s.movements[ledger]
	if !ok {
		return nil, ErrUnknownLedger
	}
	m, exists := byLedger[signature]
	if !exists {
		return nil, ErrNotFound
	}

	clone := *m
	return &clone, nil
}

// ListMovements returns movements within [start, end] millis, ascending by
// occurrence time with insertion order as the tie-break.
func (s *MemoryStore) ListMovements(_ context.Context, ledger Ledger, start, end int64) ([]*classify.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLedger, ok := s.movements[ledger]
	if !ok {
		return nil, ErrUnknownLedger
	}

	var movements []*classify.Movement
	for _, sig := range s.order[ledger] {
		m := byLedger[sig]
		if m.OccurredAt < start || m.OccurredAt > end {
			continue
		}
		clone := *m
		movements = append(movements, &clone)
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].OccurredAt < movements[j].OccurredAt
	})

	return movements, nil
}

// UpsertHolder inserts or refreshes a holder record.
func (s *MemoryStore) UpsertHolder(_ context.Context, h Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holders[h.Address] = h
	return nil
}

// ListHoldersByBalance returns all holders, descending by balance with
// address as the tie-break.
func (s *MemoryStore) ListHoldersByBalance(_ context.Context) ([]Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holders := make([]Holder, 0, len(s.holders))
	for _, h := range s.holders {
		holders = append(holders, h)
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Balance != holders[j].Balance {
			return holders[i].Balance > holders[j].Balance
		}
		return holders[i].Address < holders[j].Address
	})

	return holders, nil
}
