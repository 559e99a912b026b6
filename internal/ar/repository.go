package ar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines AR data access outside transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetInvoiceWithLines(ctx context.Context, id int64) (InvoiceWithLines, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListOutstanding(ctx context.Context) ([]Invoice, error)

	GetReceipt(ctx context.Context, id int64) (Receipt, error)
	ListReceipts(ctx context.Context, page, perPage int) ([]Receipt, int, error)
	ListApplicationsByReceipt(ctx context.Context, receiptID int64) ([]Application, error)
}

// TxRepository defines operations pinned to one transaction. The conditional
// balance updates return ErrOverapplied when the guard rejects the write.
type TxRepository interface {
	NextID(ctx context.Context, name string) (int64, error)

	InsertInvoice(ctx context.Context, inv Invoice) error
	InsertInvoiceLine(ctx context.Context, line InvoiceLine) error
	UpdateInvoiceHeader(ctx context.Context, id int64, input UpdateInvoiceInput) error
	InsertReceipt(ctx context.Context, r Receipt) error
	InsertApplication(ctx context.Context, app Application) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetReceipt(ctx context.Context, id int64) (Receipt, error)
	GetActiveApplication(ctx context.Context, id int64) (Application, error)

	ApplyToReceipt(ctx context.Context, id int64, amount decimal.Decimal) error
	ApplyToInvoice(ctx context.Context, id int64, amount decimal.Decimal) error
	ReverseOnReceipt(ctx context.Context, id int64, amount decimal.Decimal) error
	ReverseOnInvoice(ctx context.Context, id int64, amount decimal.Decimal) error
	MarkApplicationReversed(ctx context.Context, id int64) error
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

const invoiceCols = `id, number, customer_id, currency, total_amount, amount_paid, status, invoice_date, due_date, description, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.Currency, &inv.TotalAmount, &inv.AmountPaid,
		&inv.Status, &inv.InvoiceDate, &inv.DueDate, &inv.Description, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceCols+` FROM ar_invoices WHERE id = $1`, id))
}

func (r *pgRepository) GetInvoiceWithLines(ctx context.Context, id int64) (InvoiceWithLines, error) {
	inv, err := r.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceWithLines{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, line_number, description, quantity, unit_price, line_amount, created_at
FROM ar_invoice_lines WHERE invoice_id = $1 ORDER BY line_number`, id)
	if err != nil {
		return InvoiceWithLines{}, err
	}
	defer rows.Close()
	out := InvoiceWithLines{Invoice: inv}
	for rows.Next() {
		var line InvoiceLine
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.LineNumber, &line.Description,
			&line.Quantity, &line.UnitPrice, &line.LineAmount, &line.CreatedAt); err != nil {
			return InvoiceWithLines{}, err
		}
		out.Lines = append(out.Lines, line)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ar_invoices WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR customer_id = $2)`,
		string(req.Status), req.CustomerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(req.Page, req.PerPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceCols+` FROM ar_invoices
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR customer_id = $2)
ORDER BY id DESC LIMIT $3 OFFSET $4`,
		string(req.Status), req.CustomerID, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceCols+` FROM ar_invoices
WHERE status IN ('PENDING','APPROVED') AND amount_paid < total_amount ORDER BY due_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

const receiptCols = `id, number, customer_id, total_amount, amount_applied, status, receipt_date, method, reference, created_by, created_at, updated_at`

func scanReceipt(row pgx.Row) (Receipt, error) {
	var rc Receipt
	err := row.Scan(&rc.ID, &rc.Number, &rc.CustomerID, &rc.TotalAmount, &rc.AmountApplied, &rc.Status,
		&rc.ReceiptDate, &rc.Method, &rc.Reference, &rc.CreatedBy, &rc.CreatedAt, &rc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, ErrReceiptNotFound
	}
	return rc, err
}

func (r *pgRepository) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	return scanReceipt(r.pool.QueryRow(ctx, `SELECT `+receiptCols+` FROM ar_receipts WHERE id = $1`, id))
}

func (r *pgRepository) ListReceipts(ctx context.Context, page, perPage int) ([]Receipt, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ar_receipts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+receiptCols+` FROM ar_receipts ORDER BY id DESC LIMIT $1 OFFSET $2`, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rc)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListApplicationsByReceipt(ctx context.Context, receiptID int64) ([]Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, receipt_id, invoice_id, amount, applied_date, status, created_at
FROM ar_receipt_applications WHERE receipt_id = $1 ORDER BY id`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(&app.ID, &app.ReceiptID, &app.InvoiceID, &app.Amount,
			&app.AppliedDate, &app.Status, &app.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type pgTxRepository struct {
	tx  pgx.Tx
	seq sequence.Store
}

func (t *pgTxRepository) NextID(ctx context.Context, name string) (int64, error) {
	return t.seq.NextInTx(ctx, t.tx, name)
}

func (t *pgTxRepository) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ar_invoices (id, number, customer_id, currency, total_amount, amount_paid, status, invoice_date, due_date, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		inv.ID, inv.Number, inv.CustomerID, inv.Currency, inv.TotalAmount, inv.AmountPaid,
		inv.Status, inv.InvoiceDate, inv.DueDate, inv.Description, inv.CreatedBy, inv.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertInvoiceLine(ctx context.Context, line InvoiceLine) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ar_invoice_lines (id, invoice_id, line_number, description, quantity, unit_price, line_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		line.ID, line.InvoiceID, line.LineNumber, line.Description, line.Quantity, line.UnitPrice, line.LineAmount, line.CreatedAt)
	return err
}

func (t *pgTxRepository) UpdateInvoiceHeader(ctx context.Context, id int64, input UpdateInvoiceInput) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ar_invoices SET
  due_date = COALESCE($2, due_date),
  description = COALESCE($3, description),
  status = COALESCE($4, status),
  updated_at = now()
WHERE id = $1`,
		id, input.DueDate, input.Description, (*string)(input.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (t *pgTxRepository) InsertReceipt(ctx context.Context, rc Receipt) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ar_receipts (id, number, customer_id, total_amount, amount_applied, status, receipt_date, method, reference, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		rc.ID, rc.Number, rc.CustomerID, rc.TotalAmount, rc.AmountApplied, rc.Status,
		rc.ReceiptDate, rc.Method, rc.Reference, rc.CreatedBy, rc.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertApplication(ctx context.Context, app Application) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ar_receipt_applications (id, receipt_id, invoice_id, amount, applied_date, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.ReceiptID, app.InvoiceID, app.Amount, app.AppliedDate, app.Status, app.CreatedAt)
	return err
}

func (t *pgTxRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceCols+` FROM ar_invoices WHERE id = $1`, id))
}

func (t *pgTxRepository) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	return scanReceipt(t.tx.QueryRow(ctx, `SELECT `+receiptCols+` FROM ar_receipts WHERE id = $1`, id))
}

func (t *pgTxRepository) GetActiveApplication(ctx context.Context, id int64) (Application, error) {
	var app Application
	err := t.tx.QueryRow(ctx,
		`SELECT id, receipt_id, invoice_id, amount, applied_date, status, created_at
FROM ar_receipt_applications WHERE id = $1 AND status = 'ACTIVE'`, id).
		Scan(&app.ID, &app.ReceiptID, &app.InvoiceID, &app.Amount, &app.AppliedDate, &app.Status, &app.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrApplicationNotFound
	}
	return app, err
}

// The WHERE clause on both apply updates is the authoritative overapplication
// guard under concurrency; the service precondition checks only produce the
// friendlier error on the common path.
func (t *pgTxRepository) ApplyToReceipt(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ar_receipts SET
  amount_applied = amount_applied + $2,
  status = CASE WHEN amount_applied + $2 >= total_amount THEN 'APPLIED' ELSE 'PENDING' END,
  updated_at = now()
WHERE id = $1 AND amount_applied + $2 <= total_amount`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverapplied
	}
	return nil
}

func (t *pgTxRepository) ApplyToInvoice(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ar_invoices SET
  amount_paid = amount_paid + $2,
  status = CASE WHEN amount_paid + $2 >= total_amount THEN 'PAID' ELSE 'PENDING' END,
  updated_at = now()
WHERE id = $1 AND amount_paid + $2 <= total_amount`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverapplied
	}
	return nil
}

func (t *pgTxRepository) ReverseOnReceipt(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ar_receipts SET
  amount_applied = amount_applied - $2,
  status = CASE WHEN amount_applied - $2 >= total_amount THEN 'APPLIED' ELSE 'PENDING' END,
  updated_at = now()
WHERE id = $1 AND amount_applied - $2 >= 0`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func (t *pgTxRepository) ReverseOnInvoice(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ar_invoices SET
  amount_paid = amount_paid - $2,
  status = CASE WHEN amount_paid - $2 >= total_amount THEN 'PAID' ELSE 'PENDING' END,
  updated_at = now()
WHERE id = $1 AND amount_paid - $2 >= 0`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (t *pgTxRepository) MarkApplicationReversed(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ar_receipt_applications SET status = 'REVERSED' WHERE id = $1 AND status = 'ACTIVE'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
