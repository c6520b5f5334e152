// Package db owns the durable, append-only record of observed movements and the
// tracked holder set. Movements are never updated or deleted after insert; the
// uniqueness constraint on the transaction signature is the idempotency
// mechanism protecting against duplicate ingestion.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
)

// Ledger names one of the two append-only movement ledgers.
type Ledger string

const (
	// LedgerAllAssets records every detected movement regardless of asset.
	LedgerAllAssets Ledger = "all_movements"
	// LedgerTracked records only movements whose counterpart asset is the
	// tracked token, always carrying a resolved (possibly zero) price.
	LedgerTracked Ledger = "movements"
)

// Store errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownLedger is returned for a ledger name outside the fixed set.
	ErrUnknownLedger = errors.New("unknown ledger")
)

// Holder is a wallet known to hold the tracked token. Balance is informational
// only; the classifier never reads it.
type Holder struct {
	Address   string
	Balance   float64
	UpdatedAt time.Time
}

// MovementStore is the append-only movement ledger contract.
//
// InsertMovement is an explicit insert-if-absent: it returns false (and no
// error) when a movement with the same signature already exists in the ledger.
// Duplicate suppression is a first-class property of the store, not an error
// condition.
type MovementStore interface {
	InsertMovement(ctx context.Context, ledger Ledger, m *classify.Movement) (bool, error)

	// GetMovement fetches one movement by signature, or ErrNotFound.
	GetMovement(ctx context.Context, ledger Ledger, signature string) (*classify.Movement, error)

	// ListMovements returns movements whose occurrence time falls within
	// [start, end] millis, ascending by occurrence time.
	ListMovements(ctx context.Context, ledger Ledger, start, end int64) ([]*classify.Movement, error)
}

// HolderStore persists the tracked holder snapshot.
type HolderStore interface {
	UpsertHolder(ctx context.Context, h Holder) error

	// ListHoldersByBalance returns all holders ordered by descending balance,
	// ties broken by address for a stable ordering.
	ListHoldersByBalance(ctx context.Context) ([]Holder, error)
}
