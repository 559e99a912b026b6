package inventory

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

// Repository defines inventory data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, page, perPage int) ([]Item, int, error)
	UpdateItem(ctx context.Context, id int64, input UpdateItemInput) error
	ListBinCards(ctx context.Context, itemID int64, page, perPage int) ([]BinCard, int, error)
	ListAllBinCards(ctx context.Context, page, perPage int) ([]BinCard, int, error)
}

// TxRepository defines inventory writes pinned to one transaction.
type TxRepository interface {
	NextID(ctx context.Context, name string) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, id int64) (Item, error)
	InsertBinCard(ctx context.Context, card BinCard) error
	// AdjustQuantity adds delta to the item's on-hand quantity. A negative
	// result is rejected by the WHERE guard and reported as insufficient
	// stock.
	AdjustQuantity(ctx context.Context, itemID int64, delta decimal.Decimal) error
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

const itemCols = `id, sku, name, unit, quantity_on_hand, is_active, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Unit, &it.QuantityOnHand, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *pgRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_items WHERE id = $1`, id))
}

func (r *pgRepository) ListItems(ctx context.Context, page, perPage int) ([]Item, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemCols+` FROM inventory_items ORDER BY id LIMIT $1 OFFSET $2`, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateItem(ctx context.Context, id int64, input UpdateItemInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inventory_items SET
  name = COALESCE($2, name),
  unit = COALESCE($3, unit),
  is_active = COALESCE($4, is_active),
  updated_at = now()
WHERE id = $1`, id, input.Name, input.Unit, input.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *pgRepository) ListBinCards(ctx context.Context, itemID int64, page, perPage int) ([]BinCard, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bin_cards WHERE item_id = $1`, itemID).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, movement_type, quantity, balance, reference, movement_date, created_by, created_at
FROM bin_cards WHERE item_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		itemID, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []BinCard
	for rows.Next() {
		var card BinCard
		if err := rows.Scan(&card.ID, &card.ItemID, &card.MovementType, &card.Quantity, &card.Balance,
			&card.Reference, &card.MovementDate, &card.CreatedBy, &card.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, card)
	}
	return out, total, rows.Err()
}

// ListAllBinCards is the movement register across every item.
func (r *pgRepository) ListAllBinCards(ctx context.Context, page, perPage int) ([]BinCard, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bin_cards`).Scan(&total); err != nil {
		return nil, 0, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, movement_type, quantity, balance, reference, movement_date, created_by, created_at
FROM bin_cards ORDER BY id DESC LIMIT $1 OFFSET $2`,
		pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []BinCard
	for rows.Next() {
		var card BinCard
		if err := rows.Scan(&card.ID, &card.ItemID, &card.MovementType, &card.Quantity, &card.Balance,
			&card.Reference, &card.MovementDate, &card.CreatedBy, &card.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, card)
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

func (t *pgTxRepository) InsertItem(ctx context.Context, item Item) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO inventory_items (id, sku, name, unit, quantity_on_hand, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		item.ID, item.SKU, item.Name, item.Unit, item.QuantityOnHand, item.IsActive, item.CreatedAt)
	return err
}

func (t *pgTxRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	return scanItem(t.tx.QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTxRepository) InsertBinCard(ctx context.Context, card BinCard) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO bin_cards (id, item_id, movement_type, quantity, balance, reference, movement_date, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		card.ID, card.ItemID, card.MovementType, card.Quantity, card.Balance,
		card.Reference, card.MovementDate, card.CreatedBy, card.CreatedAt)
	return err
}

func (t *pgTxRepository) AdjustQuantity(ctx context.Context, itemID int64, delta decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE inventory_items SET quantity_on_hand = quantity_on_hand + $2, updated_at = now()
WHERE id = $1 AND quantity_on_hand + $2 >= 0`, itemID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}
