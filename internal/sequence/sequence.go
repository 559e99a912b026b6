// Package sequence implements the named monotonic counters backing every
// surrogate key and document number in the system. The ar_sequences table is
// the sole authority for id issuance; no entity mints its own primary key.
package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Well-known sequence names registered by Initialize at startup.
const (
	SeqAPSupplier         = "AP_SUPPLIER_ID_SEQ"
	SeqAPInvoice          = "AP_INVOICE_ID_SEQ"
	SeqAPInvoiceLine      = "AP_INVOICE_LINE_ID_SEQ"
	SeqAPPayment          = "AP_PAYMENT_ID_SEQ"
	SeqAPApplication      = "AP_APPLICATION_ID_SEQ"
	SeqARInvoice          = "AR_INVOICE_ID_SEQ"
	SeqARInvoiceLine      = "AR_INVOICE_LINE_ID_SEQ"
	SeqARReceipt          = "AR_RECEIPT_ID_SEQ"
	SeqARApplication      = "AR_APPLICATION_ID_SEQ"
	SeqJournalEntry       = "JOURNAL_ENTRY_ID_SEQ"
	SeqJournalLine        = "JOURNAL_LINE_ID_SEQ"
	SeqAccount            = "ACCOUNT_ID_SEQ"
	SeqParty              = "PARTY_ID_SEQ"
	SeqPartySite          = "PARTY_SITE_ID_SEQ"
	SeqPartyContact       = "PARTY_CONTACT_ID_SEQ"
	SeqTaxRate            = "TAX_RATE_ID_SEQ"
	SeqCustomerSupplier   = "CUSTOMER_SUPPLIER_ID_SEQ"
	SeqInventoryItem      = "INVENTORY_ITEM_ID_SEQ"
	SeqBinCard            = "BIN_CARD_ID_SEQ"
	SeqPurchaseAgreement  = "PURCHASE_AGREEMENT_ID_SEQ"
	SeqPurchaseAgreeLine  = "PURCHASE_AGREEMENT_LINE_ID_SEQ"
)

// ErrSequenceNotFound indicates an unregistered sequence name.
var ErrSequenceNotFound = fmt.Errorf("sequence: %w", shared.ErrNotFound)

// Sequence mirrors one ar_sequences row.
type Sequence struct {
	Name        string
	Current     int64
	IncrementBy int64
}

// Store issues monotonic values for named sequences. Two concurrent GetNext
// calls for the same name never observe the same value.
type Store interface {
	// GetNext atomically advances the counter and returns the new value.
	GetNext(ctx context.Context, name string) (int64, error)
	// NextInTx advances the counter inside an existing transaction so that
	// document writers can mint ids within their own atomic scope.
	NextInTx(ctx context.Context, tx pgx.Tx, name string) (int64, error)
	// GetCurrent reads the counter without incrementing.
	GetCurrent(ctx context.Context, name string) (int64, error)
	// Reset forces the counter to value.
	Reset(ctx context.Context, name string, value int64) error
	// Initialize registers names when absent so the first issued value is 1;
	// existing rows are left untouched.
	Initialize(ctx context.Context, names ...string) error
}

// AllSequences lists every sequence the server registers on boot.
func AllSequences() []string {
	return []string{
		SeqAPSupplier, SeqAPInvoice, SeqAPInvoiceLine, SeqAPPayment, SeqAPApplication,
		SeqARInvoice, SeqARInvoiceLine, SeqARReceipt, SeqARApplication,
		SeqJournalEntry, SeqJournalLine, SeqAccount,
		SeqParty, SeqPartySite, SeqPartyContact, SeqTaxRate, SeqCustomerSupplier,
		SeqInventoryItem, SeqBinCard, SeqPurchaseAgreement, SeqPurchaseAgreeLine,
	}
}
