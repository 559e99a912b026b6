package procurement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// SupplierChecker verifies that a supplier exists before agreements
// reference it.
type SupplierChecker interface {
	SupplierExists(ctx context.Context, supplierID int64) (bool, error)
}

// Service implements procurement use cases.
type Service struct {
	repo      Repository
	suppliers SupplierChecker
	now       func() time.Time
}

// NewService constructs the procurement service.
func NewService(repo Repository, suppliers SupplierChecker) *Service {
	return &Service{repo: repo, suppliers: suppliers, now: time.Now}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateAgreement writes the header and all lines in one transaction.
func (s *Service) CreateAgreement(ctx context.Context, input CreateAgreementInput) (AgreementWithLines, error) {
	ok, err := s.suppliers.SupplierExists(ctx, input.SupplierID)
	if err != nil {
		return AgreementWithLines{}, err
	}
	if !ok {
		return AgreementWithLines{}, shared.ErrNotFound
	}
	total := decimal.Zero
	amounts := make([]decimal.Decimal, len(input.Lines))
	for i, line := range input.Lines {
		amounts[i] = line.Quantity.Mul(line.UnitPrice)
		total = total.Add(amounts[i])
	}

	var out AgreementWithLines
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqPurchaseAgreement)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		agreement := Agreement{
			ID:          id,
			Number:      sequence.FormatDocumentNumber("PA", id, 8),
			SupplierID:  input.SupplierID,
			Status:      AgreementStatusDraft,
			TotalAmount: total,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			Description: input.Description,
			CreatedBy:   input.CreatedBy,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := tx.InsertAgreement(ctx, agreement); err != nil {
			return err
		}
		out = AgreementWithLines{Agreement: agreement}
		for i, in := range input.Lines {
			lineID, err := tx.NextID(ctx, sequence.SeqPurchaseAgreeLine)
			if err != nil {
				return err
			}
			line := Line{
				ID:          lineID,
				AgreementID: id,
				LineNumber:  i + 1,
				Description: in.Description,
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
				LineAmount:  amounts[i],
				CreatedAt:   ts,
			}
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
			out.Lines = append(out.Lines, line)
		}
		return nil
	})
	if err != nil {
		return AgreementWithLines{}, err
	}
	return out, nil
}

func (s *Service) GetAgreement(ctx context.Context, id int64) (AgreementWithLines, error) {
	return s.repo.GetAgreementWithLines(ctx, id)
}

func (s *Service) ListAgreements(ctx context.Context, page, perPage int) ([]Agreement, shared.Pagination, error) {
	agreements, total, err := s.repo.ListAgreements(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return agreements, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) UpdateAgreement(ctx context.Context, id int64, input UpdateAgreementInput) (AgreementWithLines, error) {
	if err := s.repo.UpdateAgreement(ctx, id, input); err != nil {
		return AgreementWithLines{}, err
	}
	return s.repo.GetAgreementWithLines(ctx, id)
}
