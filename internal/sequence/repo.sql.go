package sequence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed sequence storage.
type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetNext advances the named counter inside its own transaction. The
// increment is a single atomic read-modify-write on one connection, which
// makes the counter exactly as strong as a database-native sequence under
// concurrent callers.
func (r *Repository) GetNext(ctx context.Context, name string) (int64, error) {
	var value int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		value, err = r.NextInTx(ctx, tx, name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// NextInTx advances the counter within the caller's transaction.
func (r *Repository) NextInTx(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var value int64
	err := tx.QueryRow(ctx,
		`UPDATE ar_sequences SET current_value = current_value + increment_by WHERE sequence_name = $1 RETURNING current_value`,
		name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSequenceNotFound
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// GetCurrent reads the counter without incrementing.
func (r *Repository) GetCurrent(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.pool.QueryRow(ctx,
		`SELECT current_value FROM ar_sequences WHERE sequence_name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSequenceNotFound
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Reset forces the counter to value.
func (r *Repository) Reset(ctx context.Context, name string, value int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ar_sequences SET current_value = $2 WHERE sequence_name = $1`, name, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSequenceNotFound
	}
	return nil
}

// Initialize registers sequences idempotently. Counters are seeded at zero so
// the first issued value is 1.
func (r *Repository) Initialize(ctx context.Context, names ...string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, name := range names {
			if _, err := tx.Exec(ctx,
				`INSERT INTO ar_sequences (sequence_name, current_value, increment_by) VALUES ($1, 0, 1) ON CONFLICT (sequence_name) DO NOTHING`,
				name); err != nil {
				return err
			}
		}
		return nil
	})
}
