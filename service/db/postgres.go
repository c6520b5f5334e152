package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// ledgerTable maps a ledger to its table name. The switch doubles as
// validation so a ledger value can never be interpolated into SQL unchecked.
func ledgerTable(ledger Ledger) (string, error) {
	switch ledger {
	case LedgerAllAssets:
		return "all_movements", nil
	case LedgerTracked:
		return "movements", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLedger, ledger)
	}
}

// PostgresStore implements MovementStore and HolderStore using PostgreSQL.
type PostgresStore struct {
	pool   *Pool
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the pool.
func NewPostgresStore(pool *Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// Compile-time interface checks.
var (
	_ MovementStore = (*PostgresStore)(nil)
	_ HolderStore   = (*PostgresStore)(nil)
)

// InsertMovement appends a movement to the ledger unless one with the same
// signature already exists. Returns true when a row was written, false when
// the signature was already present.
func (s *PostgresStore) InsertMovement(ctx context.Context, ledger Ledger, m *classify.Movement) (bool, error) {
	table, err := ledgerTable(ledger)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			wallet_address, signature, direction, amount, mint, venue, occurred_at, price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO NOTHING
	`, table)

	tag, err := s.pool.Exec(ctx, query,
		m.WalletAddress,
		m.Signature,
		string(m.Direction),
		m.Amount,
		m.Mint,
		m.Venue,
		m.OccurredAt,
		m.Price,
	)
	if err != nil {
		return false, fmt.Errorf("insert movement into %s: %w", table, err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetMovement fetches one movement by signature, or ErrNotFound.
func (s *PostgresStore) GetMovement(ctx context.Context, ledger Ledger, signature string) (*classify.Movement, error) {
	table, err := ledgerTable(ledger)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT wallet_address, signature, direction, amount, mint,
		       COALESCE(venue, 'Unknown'), COALESCE(occurred_at, 0), price
		FROM %s
		WHERE signature = $1
	`, table)

	var m classify.Movement
	var direction string
	err = s.pool.QueryRow(ctx, query, signature).Scan(
		&m.WalletAddress,
		&m.Signature,
		&direction,
		&m.Amount,
		&m.Mint,
		&m.Venue,
		&m.OccurredAt,
		&m.Price,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get movement from %s: %w", table, err)
	}
	m.Direction = classify.Direction(direction)

	return &m, nil
}

// ListMovements retrieves movements within [start, end] millis (inclusive),
// ordered by occurrence time ascending.
func (s *PostgresStore) ListMovements(ctx context.Context, ledger Ledger, start, end int64) ([]*classify.Movement, error) {
	table, err := ledgerTable(ledger)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT wallet_address, signature, direction, amount, mint,
		       COALESCE(venue, 'Unknown'), COALESCE(occurred_at, 0), price
		FROM %s
		WHERE COALESCE(occurred_at, 0) >= $1 AND COALESCE(occurred_at, 0) <= $2
		ORDER BY COALESCE(occurred_at, 0) ASC, id ASC
	`, table)

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list movements from %s: %w", table, err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

// scanMovements scans multiple rows into a slice of Movement.
func scanMovements(rows pgx.Rows) ([]*classify.Movement, error) {
	var movements []*classify.Movement

	for rows.Next() {
		var m classify.Movement
		var direction string

		err := rows.Scan(
			&m.WalletAddress,
			&m.Signature,
			&direction,
			&m.Amount,
			&m.Mint,
			&m.Venue,
			&m.OccurredAt,
			&m.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan movement row: %w", err)
		}
		m.Direction = classify.Direction(direction)

		movements = append(movements, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movement rows: %w", err)
	}

	return movements, nil
}

// UpsertHolder inserts or refreshes a holder record.
func (s *PostgresStore) UpsertHolder(ctx context.Context, h Holder) error {
	query := `
		INSERT INTO holders (address, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (address) DO UPDATE
		SET balance = EXCLUDED.balance, updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, h.Address, h.Balance); err != nil {
		return fmt.Errorf("upsert holder %s: %w", h.Address, err)
	}
	return nil
}

// ListHoldersByBalance retrieves all holders, descending by balance with
// address as the tie-break.
func (s *PostgresStore) ListHoldersByBalance(ctx context.Context) ([]Holder, error) {
	query := `
		SELECT address, balance, updated_at
		FROM holders
		ORDER BY balance DESC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var holders []Holder
	for rows.Next() {
		var h Holder
		if err := rows.Scan(&h.Address, &h.Balance, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}

	return holders, nil
}
