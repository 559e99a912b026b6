package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service implements inventory use cases. The bin card row and the on-hand
// adjustment always commit together.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the inventory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (Item, error) {
	var created Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqInventoryItem)
		if err != nil {
			return err
		}
		created = Item{
			ID:             id,
			SKU:            sequence.FormatDocumentNumber("ITM", id, 6),
			Name:           input.Name,
			Unit:           input.Unit,
			QuantityOnHand: decimal.Zero,
			IsActive:       true,
			CreatedAt:      s.now().UTC(),
		}
		created.UpdatedAt = created.CreatedAt
		return tx.InsertItem(ctx, created)
	})
	if err != nil {
		return Item{}, err
	}
	return created, nil
}

func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, page, perPage int) ([]Item, shared.Pagination, error) {
	items, total, err := s.repo.ListItems(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, input UpdateItemInput) (Item, error) {
	if err := s.repo.UpdateItem(ctx, id, input); err != nil {
		return Item{}, err
	}
	return s.repo.GetItem(ctx, id)
}

// RecordMovement writes one bin card row and adjusts the item's on-hand
// quantity in the same transaction. Outbound movements that would drive the
// balance negative fail with no writes.
func (s *Service) RecordMovement(ctx context.Context, input RecordMovementInput) (BinCard, error) {
	if !shared.IsPositive(input.Quantity) {
		return BinCard{}, shared.ErrValidation
	}
	delta := input.Quantity
	if input.MovementType == MovementOut {
		delta = delta.Neg()
	}
	var created BinCard
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItem(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if err := tx.AdjustQuantity(ctx, input.ItemID, delta); err != nil {
			return err
		}
		id, err := tx.NextID(ctx, sequence.SeqBinCard)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		movementDate := input.MovementDate
		if movementDate.IsZero() {
			movementDate = ts
		}
		created = BinCard{
			ID:           id,
			ItemID:       input.ItemID,
			MovementType: input.MovementType,
			Quantity:     input.Quantity,
			Balance:      item.QuantityOnHand.Add(delta),
			Reference:    input.Reference,
			MovementDate: movementDate,
			CreatedBy:    input.CreatedBy,
			CreatedAt:    ts,
		}
		return tx.InsertBinCard(ctx, created)
	})
	if err != nil {
		return BinCard{}, err
	}
	return created, nil
}

func (s *Service) ListBinCards(ctx context.Context, itemID int64, page, perPage int) ([]BinCard, shared.Pagination, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, shared.Pagination{}, err
	}
	cards, total, err := s.repo.ListBinCards(ctx, itemID, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return cards, shared.NewPagination(page, perPage, total), nil
}

// ListMovements is the register of all bin card rows across items.
func (s *Service) ListMovements(ctx context.Context, page, perPage int) ([]BinCard, shared.Pagination, error) {
	cards, total, err := s.repo.ListAllBinCards(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return cards, shared.NewPagination(page, perPage, total), nil
}
