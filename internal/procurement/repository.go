package procurement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines procurement data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetAgreement(ctx context.Context, id int64) (Agreement, error)
	GetAgreementWithLines(ctx context.Context, id int64) (AgreementWithLines, error)
	ListAgreements(ctx context.Context, page, perPage int) ([]Agreement, int, error)
	UpdateAgreement(ctx context.Context, id int64, input UpdateAgreementInput) error
}

// TxRepository defines procurement writes pinned to one transaction.
type TxRepository interface {
	NextID(ctx context.Context, name string) (int64, error)
	InsertAgreement(ctx context.Context, a Agreement) error
	InsertLine(ctx context.Context, line Line) error
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool *pgxpool.Pool
	seq  sequence.Store
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool, seq sequence.Store) Repository {
	return &pgRepository{pool: pool, seq: seq}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &pgTxRepository{tx: tx, seq: r.seq}); err != nil {
		_ = tx.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrConflict
		}
		return err
	}
	return tx.Commit(ctx)
}

const agreementCols = `id, number, supplier_id, status, total_amount, start_date, end_date, description, created_by, created_at, updated_at`

func scanAgreement(row pgx.Row) (Agreement, error) {
	var a Agreement
	err := row.Scan(&a.ID, &a.Number, &a.SupplierID, &a.Status, &a.TotalAmount,
		&a.StartDate, &a.EndDate, &a.Description, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agreement{}, ErrAgreementNotFound
	}
	return a, err
}

func (r *pgRepository) GetAgreement(ctx context.Context, id int64) (Agreement, error) {
	return scanAgreement(r.pool.QueryRow(ctx,
		`SELECT `+agreementCols+` FROM purchase_agreements WHERE id = $1`, id))
}

func (r *pgRepository) GetAgreementWithLines(ctx context.Context, id int64) (AgreementWithLines, error) {
	a, err := r.GetAgreement(ctx, id)
	if err != nil {
		return AgreementWithLines{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, agreement_id, line_number, description, quantity, unit_price, line_amount, created_at
FROM purchase_agreement_lines WHERE agreement_id = $1 ORDER BY line_number`, id)
	if err != nil {
		return AgreementWithLines{}, err
	}
	defer rows.Close()
	out := AgreementWithLines{Agreement: a}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.AgreementID, &line.LineNumber, &line.Description,
			&line.Quantity, &line.UnitPrice, &line.LineAmount, &line.CreatedAt); err != nil {
			return AgreementWithLines{}, err
		}
		out.Lines = append(out.Lines, line)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListAgreements(ctx context.Context, page, perPage int) ([]Agreement, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_agreements`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+agreementCols+` FROM purchase_agreements ORDER BY id DESC LIMIT $1 OFFSET $2`,
		pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateAgreement(ctx context.Context, id int64, input UpdateAgreementInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE purchase_agreements SET
  status = COALESCE($2, status),
  end_date = COALESCE($3, end_date),
  description = COALESCE($4, description),
  updated_at = now()
WHERE id = $1`, id, (*string)(input.Status), input.EndDate, input.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAgreementNotFound
	}
	return nil
}

type pgTxRepository struct {
	tx  pgx.Tx
	seq sequence.Store
}

func (t *pgTxRepository) NextID(ctx context.Context, name string) (int64, error) {
	return t.seq.NextInTx(ctx, t.tx, name)
}

func (t *pgTxRepository) InsertAgreement(ctx context.Context, a Agreement) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO purchase_agreements (id, number, supplier_id, status, total_amount, start_date, end_date, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		a.ID, a.Number, a.SupplierID, a.Status, a.TotalAmount,
		a.StartDate, a.EndDate, a.Description, a.CreatedBy, a.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertLine(ctx context.Context, line Line) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO purchase_agreement_lines (id, agreement_id, line_number, description, quantity, unit_price, line_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		line.ID, line.AgreementID, line.LineNumber, line.Description,
		line.Quantity, line.UnitPrice, line.LineAmount, line.CreatedAt)
	return err
}
