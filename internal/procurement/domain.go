package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AgreementStatus enumerates purchase agreement states.
type AgreementStatus string

const (
	AgreementStatusDraft  AgreementStatus = "DRAFT"
	AgreementStatusActive AgreementStatus = "ACTIVE"
	AgreementStatusClosed AgreementStatus = "CLOSED"
)

var ErrAgreementNotFound = fmt.Errorf("purchase agreement %w", shared.ErrNotFound)

// Agreement is a purchase agreement header. TotalAmount is the sum of line
// amounts, computed at write time.
type Agreement struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	SupplierID  int64           `json:"supplier_id"`
	Status      AgreementStatus `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Description string          `json:"description"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Line is one agreement line item.
type Line struct {
	ID          int64           `json:"id"`
	AgreementID int64           `json:"agreement_id"`
	LineNumber  int             `json:"line_number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineAmount  decimal.Decimal `json:"line_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AgreementWithLines bundles a header with its lines.
type AgreementWithLines struct {
	Agreement
	Lines []Line `json:"lines"`
}

// CreateAgreementInput for creating purchase agreements with lines.
type CreateAgreementInput struct {
	SupplierID  int64             `json:"supplier_id" validate:"required"`
	StartDate   time.Time         `json:"start_date"`
	EndDate     time.Time         `json:"end_date"`
	Description string            `json:"description"`
	CreatedBy   int64             `json:"-"`
	Lines       []CreateLineInput `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineInput is one requested line.
type CreateLineInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// UpdateAgreementInput carries partial header updates.
type UpdateAgreementInput struct {
	Status      *AgreementStatus `json:"status"`
	EndDate     *time.Time       `json:"end_date"`
	Description *string          `json:"description"`
}
