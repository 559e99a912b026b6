package ar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InvoiceStatus enumerates AR invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusApproved  InvoiceStatus = "APPROVED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// ReceiptStatus enumerates receipt lifecycle values.
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "PENDING"
	ReceiptStatusApplied   ReceiptStatus = "APPLIED"
	ReceiptStatusCancelled ReceiptStatus = "CANCELLED"
)

// ApplicationStatus enumerates receipt application states.
type ApplicationStatus string

const (
	ApplicationStatusActive   ApplicationStatus = "ACTIVE"
	ApplicationStatusReversed ApplicationStatus = "REVERSED"
)

var (
	ErrInvoiceNotFound     = fmt.Errorf("invoice %w", shared.ErrNotFound)
	ErrReceiptNotFound     = fmt.Errorf("receipt %w", shared.ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("active application %w", shared.ErrNotFound)
	ErrOverapplied         = fmt.Errorf("%w: amount exceeds remaining balance", shared.ErrValidation)
	ErrInvoiceNotOpen      = fmt.Errorf("%w: invoice is not open for receipts", shared.ErrValidation)
	// ErrStatusNotUpdatable rejects header updates that try to set a derived
	// status. PAID is owned by receipt application, CANCELLED by void.
	ErrStatusNotUpdatable = fmt.Errorf("%w: invoice status PAID and CANCELLED cannot be set directly", shared.ErrValidation)
)

// Invoice is an AR invoice header. AmountPaid and Status are derived fields
// owned by the balance propagation service.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	CustomerID  int64           `json:"customer_id"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      InvoiceStatus   `json:"status"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     time.Time       `json:"due_date"`
	Description string          `json:"description"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AmountDue returns the uncollected balance.
func (i Invoice) AmountDue() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

// InvoiceLine is one AR invoice line item.
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

// Receipt records cash received from a customer. AmountApplied and Status are
// derived fields owned by the balance propagation service.
type Receipt struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	CustomerID    int64           `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	Status        ReceiptStatus   `json:"status"`
	ReceiptDate   time.Time       `json:"receipt_date"`
	Method        string          `json:"method"`
	Reference     string          `json:"reference"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Remaining returns the unapplied balance.
func (r Receipt) Remaining() decimal.Decimal {
	return r.TotalAmount.Sub(r.AmountApplied)
}

// Application links an amount of a receipt to an invoice.
type Application struct {
	ID          int64             `json:"id"`
	ReceiptID   int64             `json:"receipt_id"`
	InvoiceID   int64             `json:"invoice_id"`
	Amount      decimal.Decimal   `json:"amount"`
	AppliedDate time.Time         `json:"applied_date"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// InvoiceWithLines bundles a header with its lines.
type InvoiceWithLines struct {
	Invoice
	Lines []InvoiceLine `json:"lines"`
}

// AgingBucket summarises uncollected balances by days overdue.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}

// CreateInvoiceInput for creating AR invoices with lines.
type CreateInvoiceInput struct {
	CustomerID  int64                    `json:"customer_id" validate:"required"`
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

// UpdateInvoiceInput carries partial header updates. Derived fields are
// excluded on purpose; only workflow statuses may be set.
type UpdateInvoiceInput struct {
	DueDate     *time.Time     `json:"due_date"`
	Description *string        `json:"description"`
	Status      *InvoiceStatus `json:"status" validate:"omitempty,oneof=DRAFT PENDING APPROVED"`
}

// CreateReceiptInput for recording customer receipts.
type CreateReceiptInput struct {
	CustomerID  int64           `json:"customer_id" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ReceiptDate time.Time       `json:"receipt_date"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	CreatedBy   int64           `json:"-"`
}

// ApplyReceiptInput requests applying part of a receipt to an invoice.
type ApplyReceiptInput struct {
	InvoiceID int64           `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	Status     InvoiceStatus
	CustomerID int64
	Page       int
	PerPage    int
}
