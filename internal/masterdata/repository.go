package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines master data access. Master data writes are single-row,
// so only party creation runs through an explicit transaction scope.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetParty(ctx context.Context, id int64) (Party, error)
	ListParties(ctx context.Context, page, perPage int) ([]Party, int, error)
	UpdateParty(ctx context.Context, id int64, input UpdatePartyInput) error
	DeleteParty(ctx context.Context, id int64) error
	CountPartyDependents(ctx context.Context, partyID int64) (int, error)

	ListSites(ctx context.Context, partyID int64) ([]Site, error)
	DeleteSite(ctx context.Context, partyID, siteID int64) error
	ListContacts(ctx context.Context, partyID int64) ([]ContactPoint, error)
	DeleteContact(ctx context.Context, partyID, contactID int64) error

	GetTaxRate(ctx context.Context, id int64) (TaxRate, error)
	ListTaxRates(ctx context.Context) ([]TaxRate, error)
	UpdateTaxRate(ctx context.Context, id int64, input UpdateTaxRateInput) error

	ListLinks(ctx context.Context, partyID int64) ([]Link, error)
	DeleteLink(ctx context.Context, id int64) error
	HasActiveLink(ctx context.Context, partyID int64, role PartyRole) (bool, error)
}

// TxRepository defines writes pinned to one transaction.
type TxRepository interface {
	NextID(ctx context.Context, name string) (int64, error)
	InsertParty(ctx context.Context, p Party) error
	InsertSite(ctx context.Context, s Site) error
	InsertContact(ctx context.Context, c ContactPoint) error
	InsertTaxRate(ctx context.Context, tr TaxRate) error
	InsertLink(ctx context.Context, l Link) error
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

const partyCols = `id, number, name, type, tax_id, is_active, created_at, updated_at`

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.Number, &p.Name, &p.Type, &p.TaxID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrPartyNotFound
	}
	return p, err
}

func (r *pgRepository) GetParty(ctx context.Context, id int64) (Party, error) {
	return scanParty(r.pool.QueryRow(ctx, `SELECT `+partyCols+` FROM parties WHERE id = $1`, id))
}

func (r *pgRepository) ListParties(ctx context.Context, page, perPage int) ([]Party, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM parties`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+partyCols+` FROM parties ORDER BY id LIMIT $1 OFFSET $2`, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateParty(ctx context.Context, id int64, input UpdatePartyInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE parties SET
  name = COALESCE($2, name),
  tax_id = COALESCE($3, tax_id),
  is_active = COALESCE($4, is_active),
  updated_at = now()
WHERE id = $1`, id, input.Name, input.TaxID, input.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartyNotFound
	}
	return nil
}

func (r *pgRepository) DeleteParty(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM parties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartyNotFound
	}
	return nil
}

func (r *pgRepository) CountPartyDependents(ctx context.Context, partyID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT
  (SELECT COUNT(*) FROM party_sites WHERE party_id = $1) +
  (SELECT COUNT(*) FROM party_contact_points WHERE party_id = $1) +
  (SELECT COUNT(*) FROM customer_supplier_links WHERE party_id = $1)`, partyID).Scan(&count)
	return count, err
}

func (r *pgRepository) ListSites(ctx context.Context, partyID int64) ([]Site, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_id, name, address, city, country, is_primary, created_at
FROM party_sites WHERE party_id = $1 ORDER BY id`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.PartyID, &s.Name, &s.Address, &s.City, &s.Country, &s.IsPrimary, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgRepository) DeleteSite(ctx context.Context, partyID, siteID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM party_sites WHERE id = $1 AND party_id = $2`, siteID, partyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSiteNotFound
	}
	return nil
}

func (r *pgRepository) ListContacts(ctx context.Context, partyID int64) ([]ContactPoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_id, kind, value, is_primary, created_at
FROM party_contact_points WHERE party_id = $1 ORDER BY id`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContactPoint
	for rows.Next() {
		var c ContactPoint
		if err := rows.Scan(&c.ID, &c.PartyID, &c.Kind, &c.Value, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) DeleteContact(ctx context.Context, partyID, contactID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM party_contact_points WHERE id = $1 AND party_id = $2`, contactID, partyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (r *pgRepository) GetTaxRate(ctx context.Context, id int64) (TaxRate, error) {
	var tr TaxRate
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name, rate, is_active, created_at, updated_at FROM tax_rates WHERE id = $1`, id).
		Scan(&tr.ID, &tr.Code, &tr.Name, &tr.Rate, &tr.IsActive, &tr.CreatedAt, &tr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxRate{}, ErrTaxRateNotFound
	}
	return tr, err
}

func (r *pgRepository) ListTaxRates(ctx context.Context) ([]TaxRate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, rate, is_active, created_at, updated_at FROM tax_rates ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaxRate
	for rows.Next() {
		var tr TaxRate
		if err := rows.Scan(&tr.ID, &tr.Code, &tr.Name, &tr.Rate, &tr.IsActive, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (r *pgRepository) UpdateTaxRate(ctx context.Context, id int64, input UpdateTaxRateInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tax_rates SET
  name = COALESCE($2, name),
  rate = COALESCE($3, rate),
  is_active = COALESCE($4, is_active),
  updated_at = now()
WHERE id = $1`, id, input.Name, input.Rate, input.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaxRateNotFound
	}
	return nil
}

func (r *pgRepository) ListLinks(ctx context.Context, partyID int64) ([]Link, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_id, role, is_active, created_at
FROM customer_supplier_links WHERE ($1 = 0 OR party_id = $1) ORDER BY id`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.PartyID, &l.Role, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *pgRepository) DeleteLink(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customer_supplier_links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *pgRepository) HasActiveLink(ctx context.Context, partyID int64, role PartyRole) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customer_supplier_links WHERE party_id = $1 AND role = $2 AND is_active)`,
		partyID, string(role)).Scan(&exists)
	return exists, err
}

type pgTxRepository struct {
	tx  pgx.Tx
	seq sequence.Store
}

func (t *pgTxRepository) NextID(ctx context.Context, name string) (int64, error) {
	return t.seq.NextInTx(ctx, t.tx, name)
}

func (t *pgTxRepository) InsertParty(ctx context.Context, p Party) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO parties (id, number, name, type, tax_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		p.ID, p.Number, p.Name, p.Type, p.TaxID, p.IsActive, p.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertSite(ctx context.Context, s Site) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO party_sites (id, party_id, name, address, city, country, is_primary, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.PartyID, s.Name, s.Address, s.City, s.Country, s.IsPrimary, s.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertContact(ctx context.Context, c ContactPoint) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO party_contact_points (id, party_id, kind, value, is_primary, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PartyID, c.Kind, c.Value, c.IsPrimary, c.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertTaxRate(ctx context.Context, tr TaxRate) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO tax_rates (id, code, name, rate, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		tr.ID, tr.Code, tr.Name, tr.Rate, tr.IsActive, tr.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertLink(ctx context.Context, l Link) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO customer_supplier_links (id, party_id, role, is_active, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.PartyID, l.Role, l.IsActive, l.CreatedAt)
	return err
}
