package ap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InvoiceStatus enumerates AP invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusApproved  InvoiceStatus = "APPROVED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// PaymentStatus enumerates AP payment lifecycle values.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusApplied   PaymentStatus = "APPLIED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// ApplicationStatus enumerates payment application states.
type ApplicationStatus string

const (
	ApplicationStatusActive   ApplicationStatus = "ACTIVE"
	ApplicationStatusReversed ApplicationStatus = "REVERSED"
)

var (
	ErrSupplierNotFound    = fmt.Errorf("supplier %w", shared.ErrNotFound)
	ErrInvoiceNotFound     = fmt.Errorf("invoice %w", shared.ErrNotFound)
	ErrPaymentNotFound     = fmt.Errorf("payment %w", shared.ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("active application %w", shared.ErrNotFound)
	// ErrOverapplied indicates an amount exceeding the remaining balance on
	// either side of an application.
	ErrOverapplied = fmt.Errorf("%w: amount exceeds remaining balance", shared.ErrValidation)
	// ErrInvoiceNotPayable blocks applications against cancelled or draft invoices.
	ErrInvoiceNotPayable = fmt.Errorf("%w: invoice is not open for payment", shared.ErrValidation)
	// ErrSupplierHasInvoices blocks deleting suppliers with invoices.
	ErrSupplierHasInvoices = fmt.Errorf("%w: supplier has invoices", shared.ErrDependencyExists)
	// ErrInvoiceNotVoidable blocks voiding invoices that carry applied
	// payments or are already cancelled.
	ErrInvoiceNotVoidable = fmt.Errorf("%w: invoice has applied payments or is already cancelled", shared.ErrValidation)
	// ErrStatusNotUpdatable rejects header updates that try to set a derived
	// status. PAID is owned by payment application, CANCELLED by void.
	ErrStatusNotUpdatable = fmt.Errorf("%w: invoice status PAID and CANCELLED cannot be set directly", shared.ErrValidation)
)

// Supplier is AP master data.
type Supplier struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	TaxID     string `json:"tax_id"`
	IsActive  bool   `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Invoice is an AP invoice header. AmountPaid and Status are derived fields
// owned by the balance propagation service; nothing else writes them.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	SupplierID  int64           `json:"supplier_id"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      InvoiceStatus   `json:"status"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     time.Time       `json:"due_date"`
	Description string          `json:"description"`
	VoidReason  *string         `json:"void_reason,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Remaining returns the unpaid balance.
func (i Invoice) Remaining() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

// InvoiceLine is one AP invoice line item.
type InvoiceLine struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	LineNumber  int             `json:"line_number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineAmount  decimal.Decimal `json:"line_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Payment is an AP payment. AmountApplied and Status are derived fields owned
// by the balance propagation service.
type Payment struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	SupplierID    int64           `json:"supplier_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	Status        PaymentStatus   `json:"status"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        string          `json:"method"`
	Note          string          `json:"note"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Remaining returns the unapplied balance.
func (p Payment) Remaining() decimal.Decimal {
	return p.TotalAmount.Sub(p.AmountApplied)
}

// Application links an amount of a payment to an invoice.
type Application struct {
	ID          int64             `json:"id"`
	PaymentID   int64             `json:"payment_id"`
	InvoiceID   int64             `json:"invoice_id"`
	Amount      decimal.Decimal   `json:"amount"`
	AppliedDate time.Time         `json:"applied_date"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// InvoiceWithLines bundles a header with its lines for detail responses.
type InvoiceWithLines struct {
	Invoice
	Lines []InvoiceLine `json:"lines"`
}

// AgingBucket summarises outstanding balances by days overdue.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}

// --- Input DTOs ---

// CreateSupplierInput for registering suppliers.
type CreateSupplierInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	TaxID string `json:"tax_id"`
}

// UpdateSupplierInput carries partial supplier updates.
type UpdateSupplierInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	TaxID    *string `json:"tax_id"`
	IsActive *bool   `json:"is_active"`
}

// CreateInvoiceInput for creating AP invoices with lines.
type CreateInvoiceInput struct {
	SupplierID  int64                    `json:"supplier_id" validate:"required"`
	Currency    string                   `json:"currency"`
	InvoiceDate time.Time                `json:"invoice_date"`
	DueDate     time.Time                `json:"due_date"`
	Description string                   `json:"description"`
	CreatedBy   int64                    `json:"-"`
	Lines       []CreateInvoiceLineInput `json:"lines" validate:"required,min=1,dive"`
}

// CreateInvoiceLineInput is one requested line.
type CreateInvoiceLineInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// UpdateInvoiceInput carries partial header updates. Derived fields are not
// updatable through this path; only workflow statuses may be set.
type UpdateInvoiceInput struct {
	DueDate     *time.Time     `json:"due_date"`
	Description *string        `json:"description"`
	Status      *InvoiceStatus `json:"status" validate:"omitempty,oneof=DRAFT PENDING APPROVED"`
}

// VoidInvoiceInput records why an invoice was cancelled.
type VoidInvoiceInput struct {
	Reason string `json:"reason" validate:"required"`
}

// CreatePaymentInput for recording AP payments.
type CreatePaymentInput struct {
	SupplierID  int64           `json:"supplier_id" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      string          `json:"method"`
	Note        string          `json:"note"`
	CreatedBy   int64           `json:"-"`
}

// ApplyPaymentInput requests applying part of a payment to an invoice.
type ApplyPaymentInput struct {
	InvoiceID int64           `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	Status     InvoiceStatus
	SupplierID int64
	Page       int
	PerPage    int
}
