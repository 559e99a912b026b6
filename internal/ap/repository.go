package ap

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

// Repository defines AP data access outside transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context, page, perPage int) ([]Supplier, int, error)
	UpdateSupplier(ctx context.Context, id int64, input UpdateSupplierInput) error
	DeleteSupplier(ctx context.Context, id int64) error
	CountInvoicesBySupplier(ctx context.Context, supplierID int64) (int, error)

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetInvoiceWithLines(ctx context.Context, id int64) (InvoiceWithLines, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListOutstanding(ctx context.Context) ([]Invoice, error)
	VoidInvoice(ctx context.Context, id int64, reason string) error

	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPayments(ctx context.Context, page, perPage int) ([]Payment, int, error)
	ListApplicationsByPayment(ctx context.Context, paymentID int64) ([]Application, error)
}

// TxRepository defines operations pinned to one transaction. Conditional
// updates return ErrOverapplied when their balance guard rejects the write,
// which aborts and rolls back the whole scope.
type TxRepository interface {
	// NextID advances the named counter within the current transaction so
	// that id issuance rolls back together with the rows that used it.
	NextID(ctx context.Context, name string) (int64, error)

	InsertSupplier(ctx context.Context, s Supplier) error
	InsertInvoice(ctx context.Context, inv Invoice) error
	InsertInvoiceLine(ctx context.Context, line InvoiceLine) error
	UpdateInvoiceHeader(ctx context.Context, id int64, input UpdateInvoiceInput) error
	InsertPayment(ctx context.Context, p Payment) error
	InsertApplication(ctx context.Context, app Application) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	GetActiveApplication(ctx context.Context, id int64) (Application, error)

	ApplyToPayment(ctx context.Context, id int64, amount decimal.Decimal) error
	ApplyToInvoice(ctx context.Context, id int64, amount decimal.Decimal) error
	ReverseOnPayment(ctx context.Context, id int64, amount decimal.Decimal) error
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
		return translatePGError(err)
	}
	return tx.Commit(ctx)
}

func translatePGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrConflict
	}
	return err
}

const supplierCols = `id, number, name, email, phone, tax_id, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Number, &s.Name, &s.Email, &s.Phone, &s.TaxID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, err
}

func (r *pgRepository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierCols+` FROM ap_suppliers WHERE id = $1`, id))
}

func (r *pgRepository) ListSuppliers(ctx context.Context, page, perPage int) ([]Supplier, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ap_suppliers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+supplierCols+` FROM ap_suppliers ORDER BY id LIMIT $1 OFFSET $2`, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateSupplier(ctx context.Context, id int64, input UpdateSupplierInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ap_suppliers SET
  name = COALESCE($2, name),
  email = COALESCE($3, email),
  phone = COALESCE($4, phone),
  tax_id = COALESCE($5, tax_id),
  is_active = COALESCE($6, is_active),
  updated_at = now()
WHERE id = $1`,
		id, input.Name, input.Email, input.Phone, input.TaxID, input.IsActive)
	if err != nil {
		return translatePGError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *pgRepository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ap_suppliers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *pgRepository) CountInvoicesBySupplier(ctx context.Context, supplierID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ap_invoices WHERE supplier_id = $1`, supplierID).Scan(&count)
	return count, err
}

const invoiceCols = `id, number, supplier_id, currency, total_amount, amount_paid, status, invoice_date, due_date, description, void_reason, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.Currency, &inv.TotalAmount, &inv.AmountPaid,
		&inv.Status, &inv.InvoiceDate, &inv.DueDate, &inv.Description, &inv.VoidReason, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceCols+` FROM ap_invoices WHERE id = $1`, id))
}

func (r *pgRepository) GetInvoiceWithLines(ctx context.Context, id int64) (InvoiceWithLines, error) {
	inv, err := r.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceWithLines{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, line_number, description, quantity, unit_price, line_amount, created_at
FROM ap_invoice_lines WHERE invoice_id = $1 ORDER BY line_number`, id)
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
	// Empty filter values match everything.
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ap_invoices WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR supplier_id = $2)`,
		string(req.Status), req.SupplierID).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(req.Page, req.PerPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceCols+` FROM ap_invoices
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR supplier_id = $2)
ORDER BY id DESC LIMIT $3 OFFSET $4`,
		string(req.Status), req.SupplierID, pg.PerPage, pg.Offset())
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
		`SELECT `+invoiceCols+` FROM ap_invoices
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

// VoidInvoice cancels an invoice that has no applied payments. The guard on
// amount_paid makes the write race-safe against concurrent applications.
func (r *pgRepository) VoidInvoice(ctx context.Context, id int64, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ap_invoices SET status = 'CANCELLED', void_reason = $2, updated_at = now()
WHERE id = $1 AND status <> 'CANCELLED' AND amount_paid = 0`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotVoidable
	}
	return nil
}

const paymentCols = `id, number, supplier_id, total_amount, amount_applied, status, payment_date, method, note, created_by, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.Number, &p.SupplierID, &p.TotalAmount, &p.AmountApplied, &p.Status,
		&p.PaymentDate, &p.Method, &p.Note, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (r *pgRepository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentCols+` FROM ap_payments WHERE id = $1`, id))
}

func (r *pgRepository) ListPayments(ctx context.Context, page, perPage int) ([]Payment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ap_payments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentCols+` FROM ap_payments ORDER BY id DESC LIMIT $1 OFFSET $2`, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListApplicationsByPayment(ctx context.Context, paymentID int64) ([]Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, payment_id, invoice_id, amount, applied_date, status, created_at
FROM ap_payment_applications WHERE payment_id = $1 ORDER BY id`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(&app.ID, &app.PaymentID, &app.InvoiceID, &app.Amount,
			&app.AppliedDate, &app.Status, &app.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// --- transaction scope ---

type pgTxRepository struct {
	tx  pgx.Tx
	seq sequence.Store
}

func (t *pgTxRepository) NextID(ctx context.Context, name string) (int64, error) {
	return t.seq.NextInTx(ctx, t.tx, name)
}

func (t *pgTxRepository) InsertSupplier(ctx context.Context, s Supplier) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ap_suppliers (id, number, name, email, phone, tax_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		s.ID, s.Number, s.Name, s.Email, s.Phone, s.TaxID, s.IsActive, s.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ap_invoices (id, number, supplier_id, currency, total_amount, amount_paid, status, invoice_date, due_date, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		inv.ID, inv.Number, inv.SupplierID, inv.Currency, inv.TotalAmount, inv.AmountPaid,
		inv.Status, inv.InvoiceDate, inv.DueDate, inv.Description, inv.CreatedBy, inv.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertInvoiceLine(ctx context.Context, line InvoiceLine) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ap_invoice_lines (id, invoice_id, line_number, description, quantity, unit_price, line_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		line.ID, line.InvoiceID, line.LineNumber, line.Description, line.Quantity, line.UnitPrice, line.LineAmount, line.CreatedAt)
	return err
}

func (t *pgTxRepository) UpdateInvoiceHeader(ctx context.Context, id int64, input UpdateInvoiceInput) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ap_invoices SET
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

func (t *pgTxRepository) InsertPayment(ctx context.Context, p Payment) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ap_payments (id, number, supplier_id, total_amount, amount_applied, status, payment_date, method, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		p.ID, p.Number, p.SupplierID, p.TotalAmount, p.AmountApplied, p.Status,
		p.PaymentDate, p.Method, p.Note, p.CreatedBy, p.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertApplication(ctx context.Context, app Application) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ap_payment_applications (id, payment_id, invoice_id, amount, applied_date, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.PaymentID, app.InvoiceID, app.Amount, app.AppliedDate, app.Status, app.CreatedAt)
	return err
}

func (t *pgTxRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceCols+` FROM ap_invoices WHERE id = $1`, id))
}

func (t *pgTxRepository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM ap_payments WHERE id = $1`, id))
}

func (t *pgTxRepository) GetActiveApplication(ctx context.Context, id int64) (Application, error) {
	var app Application
	err := t.tx.QueryRow(ctx,
		`SELECT id, payment_id, invoice_id, amount, applied_date, status, created_at
FROM ap_payment_applications WHERE id = $1 AND status = 'ACTIVE'`, id).
		Scan(&app.ID, &app.PaymentID, &app.InvoiceID, &app.Amount, &app.AppliedDate, &app.Status, &app.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrApplicationNotFound
	}
	return app, err
}

// ApplyToPayment increments amount_applied; the WHERE clause is the
// authoritative overapplication guard under concurrency.
func (t *pgTxRepository) ApplyToPayment(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ap_payments SET
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

// ApplyToInvoice increments amount_paid and rederives status in the same
// statement, so the PAID/PENDING invariant can never be observed stale.
func (t *pgTxRepository) ApplyToInvoice(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ap_invoices SET
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

func (t *pgTxRepository) ReverseOnPayment(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ap_payments SET
  amount_applied = amount_applied - $2,
  status = CASE WHEN amount_applied - $2 >= total_amount THEN 'APPLIED' ELSE 'PENDING' END,
  updated_at = now()
WHERE id = $1 AND amount_applied - $2 >= 0`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (t *pgTxRepository) ReverseOnInvoice(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ap_invoices SET
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
		`UPDATE ap_payment_applications SET status = 'REVERSED' WHERE id = $1 AND status = 'ACTIVE'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
