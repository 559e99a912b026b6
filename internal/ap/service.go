package ap

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service implements AP use cases. All amount_paid, amount_applied and
// status writes on invoices and payments go through this service; handlers
// never touch derived fields directly.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the AP service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (Supplier, error) {
	var created Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqAPSupplier)
		if err != nil {
			return err
		}
		created = Supplier{
			ID:        id,
			Number:    sequence.FormatDocumentNumber("SUP", id, 6),
			Name:      input.Name,
			Email:     input.Email,
			Phone:     input.Phone,
			TaxID:     input.TaxID,
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		}
		created.UpdatedAt = created.CreatedAt
		return tx.InsertSupplier(ctx, created)
	})
	if err != nil {
		return Supplier{}, err
	}
	return created, nil
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// SupplierExists reports whether a supplier row exists. Other modules use
// it to validate references without importing this package's repository.
func (s *Service) SupplierExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.GetSupplier(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListSuppliers(ctx context.Context, page, perPage int) ([]Supplier, shared.Pagination, error) {
	suppliers, total, err := s.repo.ListSuppliers(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return suppliers, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, input UpdateSupplierInput) (Supplier, error) {
	if err := s.repo.UpdateSupplier(ctx, id, input); err != nil {
		return Supplier{}, err
	}
	return s.repo.GetSupplier(ctx, id)
}

// DeleteSupplier removes a supplier unless invoices reference it.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	count, err := s.repo.CountInvoicesBySupplier(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrSupplierHasInvoices
	}
	return s.repo.DeleteSupplier(ctx, id)
}

// CreateInvoice writes the header and every line in one transaction. A
// failure on any line rolls back the header and the consumed sequence
// values with it.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (InvoiceWithLines, error) {
	if _, err := s.repo.GetSupplier(ctx, input.SupplierID); err != nil {
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
		id, err := tx.NextID(ctx, sequence.SeqAPInvoice)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		inv := Invoice{
			ID:          id,
			Number:      sequence.FormatDocumentNumber("INV", id, 8),
			SupplierID:  input.SupplierID,
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
			lineID, err := tx.NextID(ctx, sequence.SeqAPInvoiceLine)
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

// VoidInvoice cancels an invoice and records the reason. Invoices with any
// applied payment amount cannot be voided; reverse the applications first.
func (s *Service) VoidInvoice(ctx context.Context, id int64, input VoidInvoiceInput) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status == InvoiceStatusCancelled || inv.AmountPaid.IsPositive() {
		return Invoice{}, ErrInvoiceNotVoidable
	}
	if err := s.repo.VoidInvoice(ctx, id, input.Reason); err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) CreatePayment(ctx context.Context, input CreatePaymentInput) (Payment, error) {
	if !shared.IsPositive(input.TotalAmount) {
		return Payment{}, ErrOverapplied
	}
	if _, err := s.repo.GetSupplier(ctx, input.SupplierID); err != nil {
		return Payment{}, err
	}
	var created Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqAPPayment)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		created = Payment{
			ID:            id,
			Number:        sequence.FormatDocumentNumber("PAY", id, 8),
			SupplierID:    input.SupplierID,
			TotalAmount:   input.TotalAmount,
			AmountApplied: decimal.Zero,
			Status:        PaymentStatusPending,
			PaymentDate:   input.PaymentDate,
			Method:        input.Method,
			Note:          input.Note,
			CreatedBy:     input.CreatedBy,
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
		return tx.InsertPayment(ctx, created)
	})
	if err != nil {
		return Payment{}, err
	}
	return created, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, page, perPage int) ([]Payment, shared.Pagination, error) {
	payments, total, err := s.repo.ListPayments(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return payments, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) ListApplications(ctx context.Context, paymentID int64) ([]Application, error) {
	if _, err := s.repo.GetPayment(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.repo.ListApplicationsByPayment(ctx, paymentID)
}

// ApplyPayment applies part of a payment to an invoice. The application row,
// both balance increments and both status rederivations happen in one
// transaction; any guard failure leaves every row untouched.
func (s *Service) ApplyPayment(ctx context.Context, paymentID int64, input ApplyPaymentInput) (Application, error) {
	if !shared.IsPositive(input.Amount) {
		return Application{}, ErrOverapplied
	}
	var created Application
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == PaymentStatusCancelled {
			return ErrInvoiceNotPayable
		}
		inv, err := tx.GetInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		switch inv.Status {
		case InvoiceStatusPending, InvoiceStatusApproved:
		default:
			return ErrInvoiceNotPayable
		}
		if input.Amount.GreaterThan(payment.Remaining()) || input.Amount.GreaterThan(inv.Remaining()) {
			return ErrOverapplied
		}
		id, err := tx.NextID(ctx, sequence.SeqAPApplication)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		created = Application{
			ID:          id,
			PaymentID:   paymentID,
			InvoiceID:   input.InvoiceID,
			Amount:      input.Amount,
			AppliedDate: ts,
			Status:      ApplicationStatusActive,
			CreatedAt:   ts,
		}
		if err := tx.InsertApplication(ctx, created); err != nil {
			return err
		}
		if err := tx.ApplyToPayment(ctx, paymentID, input.Amount); err != nil {
			return err
		}
		return tx.ApplyToInvoice(ctx, input.InvoiceID, input.Amount)
	})
	if err != nil {
		return Application{}, err
	}
	return created, nil
}

// ReverseApplication undoes an active application, restoring both balances
// and rederiving both statuses. Reversing twice reports not found.
func (s *Service) ReverseApplication(ctx context.Context, applicationID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		app, err := tx.GetActiveApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := tx.MarkApplicationReversed(ctx, applicationID); err != nil {
			return err
		}
		if err := tx.ReverseOnPayment(ctx, app.PaymentID, app.Amount); err != nil {
			return err
		}
		return tx.ReverseOnInvoice(ctx, app.InvoiceID, app.Amount)
	})
}

// Aging buckets outstanding invoice balances by days overdue as of asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	invoices, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return AgingBucket{}, err
	}
	var bucket AgingBucket
	bucket.Current = decimal.Zero
	bucket.Bucket30 = decimal.Zero
	bucket.Bucket60 = decimal.Zero
	bucket.Bucket90 = decimal.Zero
	bucket.Bucket120 = decimal.Zero
	for _, inv := range invoices {
		remaining := inv.Remaining()
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(remaining)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(remaining)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(remaining)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(remaining)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(remaining)
		}
	}
	return bucket, nil
}
