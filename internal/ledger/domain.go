package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AccountType classifies chart of accounts entries.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// EntryStatus is the journal entry lifecycle: draft entries are mutable,
// posted entries are immutable except for a transition to void.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "draft"
	EntryStatusPosted EntryStatus = "posted"
	EntryStatusVoid   EntryStatus = "void"
)

var (
	ErrAccountNotFound = fmt.Errorf("account %w", shared.ErrNotFound)
	ErrEntryNotFound   = fmt.Errorf("journal entry %w", shared.ErrNotFound)
	// ErrUnbalanced rejects entries whose debits and credits differ by more
	// than the balance tolerance.
	ErrUnbalanced = fmt.Errorf("%w: journal entry debits and credits do not balance", shared.ErrValidation)
	// ErrAlreadyPosted rejects posting an entry twice.
	ErrAlreadyPosted = fmt.Errorf("%w: journal entry is already posted", shared.ErrValidation)
	// ErrEntryVoid rejects posting or re-voiding a void entry.
	ErrEntryVoid = fmt.Errorf("%w: journal entry is void", shared.ErrValidation)
	// ErrPostedImmutable rejects updates and deletes on posted entries.
	ErrPostedImmutable = fmt.Errorf("%w: posted journal entries are immutable", shared.ErrValidation)
	// ErrAccountInUse blocks deleting accounts referenced by journal lines.
	ErrAccountInUse = fmt.Errorf("%w: account is referenced by journal lines", shared.ErrDependencyExists)
)

// Account is one chart of accounts row.
type Account struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	ParentID  *int64      `json:"parent_id,omitempty"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Entry is a journal entry header. TotalDebit and TotalCredit are computed
// from the lines at write time and never accepted from callers.
type Entry struct {
	ID          int64           `json:"id"`
	EntryID     string          `json:"entry_id"`
	SourceRef   string          `json:"source_ref"`
	Date        time.Time       `json:"date"`
	Status      EntryStatus     `json:"status"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Description string          `json:"description"`
	VoidReason  string          `json:"void_reason,omitempty"`
	PostedBy    *int64          `json:"posted_by,omitempty"`
	PostedAt    *time.Time      `json:"posted_at,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Line is one journal entry line item. A line carries a debit or a credit,
// never both.
type Line struct {
	ID           int64           `json:"id"`
	EntryID      int64           `json:"entry_id"`
	LineNumber   int             `json:"line_number"`
	AccountID    int64           `json:"account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Memo         string          `json:"memo"`
	CreatedAt    time.Time       `json:"created_at"`
}

// EntryWithLines bundles a header with its lines.
type EntryWithLines struct {
	Entry
	Lines []Line `json:"lines"`
}

// CreateAccountInput for registering accounts.
type CreateAccountInput struct {
	Code     string      `json:"code" validate:"required"`
	Name     string      `json:"name" validate:"required"`
	Type     AccountType `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID *int64      `json:"parent_id"`
}

// UpdateAccountInput carries partial account updates.
type UpdateAccountInput struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// CreateEntryInput for creating draft journal entries.
type CreateEntryInput struct {
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	CreatedBy   int64             `json:"-"`
	Lines       []CreateLineInput `json:"lines" validate:"required,min=2,dive"`
}

// CreateLineInput is one requested line.
type CreateLineInput struct {
	AccountID    int64           `json:"account_id" validate:"required"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Memo         string          `json:"memo"`
}

// UpdateEntryInput replaces a draft entry's header fields and lines.
type UpdateEntryInput struct {
	Date        *time.Time        `json:"date"`
	Description *string           `json:"description"`
	Lines       []CreateLineInput `json:"lines" validate:"omitempty,min=2,dive"`
}

// VoidEntryInput records why an entry was voided.
type VoidEntryInput struct {
	Reason string `json:"reason" validate:"required"`
}

// ListEntriesRequest filters entry listings.
type ListEntriesRequest struct {
	Status  EntryStatus
	Page    int
	PerPage int
}
