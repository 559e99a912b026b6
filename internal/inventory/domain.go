package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// MovementType classifies bin card movements.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

var (
	ErrItemNotFound = fmt.Errorf("inventory item %w", shared.ErrNotFound)
	// ErrInsufficientStock rejects outbound movements that would drive the
	// on-hand quantity negative.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock on hand", shared.ErrValidation)
)

// Item is one inventory item. QuantityOnHand is derived from movements and
// only written by the movement recorder.
type Item struct {
	ID             int64           `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BinCard is one movement register row. Balance is the on-hand quantity
// after this movement was applied.
type BinCard struct {
	ID           int64           `json:"id"`
	ItemID       int64           `json:"item_id"`
	MovementType MovementType    `json:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Balance      decimal.Decimal `json:"balance"`
	Reference    string          `json:"reference"`
	MovementDate time.Time       `json:"movement_date"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateItemInput registers an item.
type CreateItemInput struct {
	Name string `json:"name" validate:"required"`
	Unit string `json:"unit" validate:"required"`
}

// UpdateItemInput carries partial item updates.
type UpdateItemInput struct {
	Name     *string `json:"name"`
	Unit     *string `json:"unit"`
	IsActive *bool   `json:"is_active"`
}

// RecordMovementInput requests a stock movement.
type RecordMovementInput struct {
	ItemID       int64           `json:"item_id" validate:"required"`
	MovementType MovementType    `json:"movement_type" validate:"required,oneof=IN OUT"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reference    string          `json:"reference"`
	MovementDate time.Time       `json:"movement_date"`
	CreatedBy    int64           `json:"-"`
}
