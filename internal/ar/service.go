package ar

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PartyChecker verifies that a customer exists in master data before AR
// documents reference it.
type PartyChecker interface {
	CustomerExists(ctx context.Context, partyID int64) (bool, error)
}

// Service implements AR use cases. It is the sole writer of amount_paid,
// amount_applied and derived statuses on AR rows.
type Service struct {
	repo    Repository
	parties PartyChecker
	now     func() time.Time
}

// NewService constructs the AR service.
func NewService(repo Repository, parties PartyChecker) *Service {
	return &Service{repo: repo, parties: parties, now: time.Now}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) checkCustomer(ctx context.Context, id int64) error {
	ok, err := s.parties.CustomerExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotFound
	}
	return nil
}

// CreateInvoice writes the header and all lines in one transaction.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (InvoiceWithLines, error) {
	if err := s.checkCustomer(ctx, input.CustomerID); err != nil {
		return InvoiceWithLines{}, err
	}
	total := decimal.Zero
	amounts := make([]decimal.Decimal, len(input.Lines))
	for i, line := range input.Lines {
		amounts[i] = line.Quantity.Mul(line.UnitPrice)
		total = total.Add(amounts[i])
	}

	var out InvoiceWithLines
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqARInvoice)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		inv := Invoice{
			ID:          id,
			Number:      sequence.FormatDocumentNumber("ARI", id, 8),
			CustomerID:  input.CustomerID,
			Currency:    input.Currency,
			TotalAmount: total,
			AmountPaid:  decimal.Zero,
			Status:      InvoiceStatusPending,
			InvoiceDate: input.InvoiceDate,
			DueDate:     input.DueDate,
			Description: input.Description,
			CreatedBy:   input.CreatedBy,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		out = InvoiceWithLines{Invoice: inv}
		for i, in := range input.Lines {
			lineID, err := tx.NextID(ctx, sequence.SeqARInvoiceLine)
			if err != nil {
				return err
			}
			line := InvoiceLine{
				ID:          lineID,
				InvoiceID:   id,
				LineNumber:  i + 1,
				Description: in.Description,
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
				LineAmount:  amounts[i],
				CreatedAt:   ts,
			}
			if err := tx.InsertInvoiceLine(ctx, line); err != nil {
				return err
			}
			out.Lines = append(out.Lines, line)
		}
		return nil
	})
	if err != nil {
		return InvoiceWithLines{}, err
	}
	return out, nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (InvoiceWithLines, error) {
	return s.repo.GetInvoiceWithLines(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, shared.Pagination, error) {
	invoices, total, err := s.repo.ListInvoices(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return invoices, shared.NewPagination(req.Page, req.PerPage, total), nil
}

func (s *Service) UpdateInvoice(ctx context.Context, id int64, input UpdateInvoiceInput) (InvoiceWithLines, error) {
	if input.Status != nil {
		switch *input.Status {
		case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusApproved:
		default:
			return InvoiceWithLines{}, ErrStatusNotUpdatable
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateInvoiceHeader(ctx, id, input)
	})
	if err != nil {
		return InvoiceWithLines{}, err
	}
	return s.repo.GetInvoiceWithLines(ctx, id)
}

func (s *Service) CreateReceipt(ctx context.Context, input CreateReceiptInput) (Receipt, error) {
	if !shared.IsPositive(input.TotalAmount) {
		return Receipt{}, ErrOverapplied
	}
	if err := s.checkCustomer(ctx, input.CustomerID); err != nil {
		return Receipt{}, err
	}
	var created Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqARReceipt)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		created = Receipt{
			ID:            id,
			Number:        sequence.FormatDocumentNumber("RCP", id, 8),
			CustomerID:    input.CustomerID,
			TotalAmount:   input.TotalAmount,
			AmountApplied: decimal.Zero,
			Status:        ReceiptStatusPending,
			ReceiptDate:   input.ReceiptDate,
			Method:        input.Method,
			Reference:     input.Reference,
			CreatedBy:     input.CreatedBy,
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
		return tx.InsertReceipt(ctx, created)
	})
	if err != nil {
		return Receipt{}, err
	}
	return created, nil
}

func (s *Service) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

func (s *Service) ListReceipts(ctx context.Context, page, perPage int) ([]Receipt, shared.Pagination, error) {
	receipts, total, err := s.repo.ListReceipts(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return receipts, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) ListApplications(ctx context.Context, receiptID int64) ([]Application, error) {
	if _, err := s.repo.GetReceipt(ctx, receiptID); err != nil {
		return nil, err
	}
	return s.repo.ListApplicationsByReceipt(ctx, receiptID)
}

// ApplyReceipt applies part of a receipt to an invoice. All writes share one
// transaction; a guard failure on either side leaves every row untouched.
func (s *Service) ApplyReceipt(ctx context.Context, receiptID int64, input ApplyReceiptInput) (Application, error) {
	if !shared.IsPositive(input.Amount) {
		return Application{}, ErrOverapplied
	}
	var created Application
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		receipt, err := tx.GetReceipt(ctx, receiptID)
		if err != nil {
			return err
		}
		if receipt.Status == ReceiptStatusCancelled {
			return ErrInvoiceNotOpen
		}
		inv, err := tx.GetInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		switch inv.Status {
		case InvoiceStatusPending, InvoiceStatusApproved:
		default:
			return ErrInvoiceNotOpen
		}
		if input.Amount.GreaterThan(receipt.Remaining()) || input.Amount.GreaterThan(inv.AmountDue()) {
			return ErrOverapplied
		}
		id, err := tx.NextID(ctx, sequence.SeqARApplication)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		created = Application{
			ID:          id,
			ReceiptID:   receiptID,
			InvoiceID:   input.InvoiceID,
			Amount:      input.Amount,
			AppliedDate: ts,
			Status:      ApplicationStatusActive,
			CreatedAt:   ts,
		}
		if err := tx.InsertApplication(ctx, created); err != nil {
			return err
		}
		if err := tx.ApplyToReceipt(ctx, receiptID, input.Amount); err != nil {
			return err
		}
		return tx.ApplyToInvoice(ctx, input.InvoiceID, input.Amount)
	})
	if err != nil {
		return Application{}, err
	}
	return created, nil
}

// ReverseApplication undoes an active application. Reversing an application
// that is already reversed reports not found.
func (s *Service) ReverseApplication(ctx context.Context, applicationID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		app, err := tx.GetActiveApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := tx.MarkApplicationReversed(ctx, applicationID); err != nil {
			return err
		}
		if err := tx.ReverseOnReceipt(ctx, app.ReceiptID, app.Amount); err != nil {
			return err
		}
		return tx.ReverseOnInvoice(ctx, app.InvoiceID, app.Amount)
	})
}

// Aging buckets uncollected invoice balances by days overdue as of asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	invoices, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return AgingBucket{}, err
	}
	bucket := AgingBucket{
		Current:   decimal.Zero,
		Bucket30:  decimal.Zero,
		Bucket60:  decimal.Zero,
		Bucket90:  decimal.Zero,
		Bucket120: decimal.Zero,
	}
	for _, inv := range invoices {
		due := inv.AmountDue()
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(due)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(due)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(due)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(due)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(due)
		}
	}
	return bucket, nil
}
