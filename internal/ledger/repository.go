package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines ledger data access outside transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetAccount(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context, accountType AccountType) ([]Account, error)
	UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) error
	DeleteAccount(ctx context.Context, id int64) error
	CountLinesByAccount(ctx context.Context, accountID int64) (int, error)

	GetEntry(ctx context.Context, id int64) (Entry, error)
	GetEntryWithLines(ctx context.Context, id int64) (EntryWithLines, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error)
}

// TxRepository defines ledger operations pinned to one transaction.
type TxRepository interface {
	NextID(ctx context.Context, name string) (int64, error)

	InsertAccount(ctx context.Context, a Account) error

	GetEntry(ctx context.Context, id int64) (Entry, error)
	InsertEntry(ctx context.Context, e Entry) error
	InsertLine(ctx context.Context, line Line) error
	UpdateEntryHeader(ctx context.Context, e Entry) error
	DeleteLines(ctx context.Context, entryID int64) error
	DeleteEntry(ctx context.Context, id int64) error
	MarkPosted(ctx context.Context, id, postedBy int64) error
	MarkVoid(ctx context.Context, id int64, reason string) error
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

const accountCols = `id, code, name, type, parent_id, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *pgRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM chart_of_accounts WHERE id = $1`, id))
}

func (r *pgRepository) ListAccounts(ctx context.Context, accountType AccountType) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountCols+` FROM chart_of_accounts WHERE ($1 = '' OR type = $1) ORDER BY code`,
		string(accountType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgRepository) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chart_of_accounts SET
  name = COALESCE($2, name),
  is_active = COALESCE($3, is_active),
  updated_at = now()
WHERE id = $1`, id, input.Name, input.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *pgRepository) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chart_of_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *pgRepository) CountLinesByAccount(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM journal_entry_line_items WHERE account_id = $1`, accountID).Scan(&count)
	return count, err
}

const entryCols = `id, entry_id, source_ref, date, status, total_debit, total_credit, description, void_reason, posted_by, posted_at, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EntryID, &e.SourceRef, &e.Date, &e.Status, &e.TotalDebit, &e.TotalCredit,
		&e.Description, &e.VoidReason, &e.PostedBy, &e.PostedAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

func (r *pgRepository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM journal_entries WHERE id = $1`, id))
}

func (r *pgRepository) GetEntryWithLines(ctx context.Context, id int64) (EntryWithLines, error) {
	e, err := r.GetEntry(ctx, id)
	if err != nil {
		return EntryWithLines{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, entry_id, line_number, account_id, debit_amount, credit_amount, memo, created_at
FROM journal_entry_line_items WHERE entry_id = $1 ORDER BY line_number`, id)
	if err != nil {
		return EntryWithLines{}, err
	}
	defer rows.Close()
	out := EntryWithLines{Entry: e}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountID,
			&line.DebitAmount, &line.CreditAmount, &line.Memo, &line.CreatedAt); err != nil {
			return EntryWithLines{}, err
		}
		out.Lines = append(out.Lines, line)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListEntries(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE ($1 = '' OR status = $1)`,
		string(req.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(req.Page, req.PerPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryCols+` FROM journal_entries WHERE ($1 = '' OR status = $1)
ORDER BY id DESC LIMIT $2 OFFSET $3`,
		string(req.Status), pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

type pgTxRepository struct {
	tx  pgx.Tx
	seq sequence.Store
}

func (t *pgTxRepository) NextID(ctx context.Context, name string) (int64, error) {
	return t.seq.NextInTx(ctx, t.tx, name)
}

func (t *pgTxRepository) InsertAccount(ctx context.Context, a Account) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO chart_of_accounts (id, code, name, type, parent_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		a.ID, a.Code, a.Name, a.Type, a.ParentID, a.IsActive, a.CreatedAt)
	return err
}

func (t *pgTxRepository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return scanEntry(t.tx.QueryRow(ctx, `SELECT `+entryCols+` FROM journal_entries WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTxRepository) InsertEntry(ctx context.Context, e Entry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO journal_entries (id, entry_id, source_ref, date, status, total_debit, total_credit, description, void_reason, posted_by, posted_at, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		e.ID, e.EntryID, e.SourceRef, e.Date, e.Status, e.TotalDebit, e.TotalCredit,
		e.Description, e.VoidReason, e.PostedBy, e.PostedAt, e.CreatedBy, e.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertLine(ctx context.Context, line Line) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO journal_entry_line_items (id, entry_id, line_number, account_id, debit_amount, credit_amount, memo, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		line.ID, line.EntryID, line.LineNumber, line.AccountID, line.DebitAmount, line.CreditAmount, line.Memo, line.CreatedAt)
	return err
}

func (t *pgTxRepository) UpdateEntryHeader(ctx context.Context, e Entry) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE journal_entries SET
  date = $2, description = $3, total_debit = $4, total_credit = $5, updated_at = now()
WHERE id = $1`,
		e.ID, e.Date, e.Description, e.TotalDebit, e.TotalCredit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (t *pgTxRepository) DeleteLines(ctx context.Context, entryID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM journal_entry_line_items WHERE entry_id = $1`, entryID)
	return err
}

func (t *pgTxRepository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// MarkPosted flips draft to posted. The status predicate makes the transition
// safe against a concurrent post of the same entry.
func (t *pgTxRepository) MarkPosted(ctx context.Context, id, postedBy int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE journal_entries SET status = 'posted', posted_by = $2, posted_at = now(), updated_at = now()
WHERE id = $1 AND status = 'draft'`, id, postedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (t *pgTxRepository) MarkVoid(ctx context.Context, id int64, reason string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE journal_entries SET status = 'void', void_reason = $2, updated_at = now()
WHERE id = $1 AND status <> 'void'`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryVoid
	}
	return nil
}
