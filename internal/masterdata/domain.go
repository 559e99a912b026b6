package masterdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PartyType distinguishes people from organizations.
type PartyType string

const (
	PartyTypePerson       PartyType = "PERSON"
	PartyTypeOrganization PartyType = "ORGANIZATION"
)

// PartyRole is the commercial role a party plays.
type PartyRole string

const (
	RoleCustomer PartyRole = "CUSTOMER"
	RoleSupplier PartyRole = "SUPPLIER"
)

// ContactKind enumerates contact point channels.
type ContactKind string

const (
	ContactEmail ContactKind = "EMAIL"
	ContactPhone ContactKind = "PHONE"
)

var (
	ErrPartyNotFound   = fmt.Errorf("party %w", shared.ErrNotFound)
	ErrSiteNotFound    = fmt.Errorf("party site %w", shared.ErrNotFound)
	ErrContactNotFound = fmt.Errorf("contact point %w", shared.ErrNotFound)
	ErrTaxRateNotFound = fmt.Errorf("tax rate %w", shared.ErrNotFound)
	ErrLinkNotFound    = fmt.Errorf("customer-supplier link %w", shared.ErrNotFound)
	// ErrPartyHasDependents blocks deleting parties with sites, contact
	// points or customer-supplier links.
	ErrPartyHasDependents = fmt.Errorf("%w: party has dependent records", shared.ErrDependencyExists)
)

// Party is one master data party row.
type Party struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	Name      string    `json:"name"`
	Type      PartyType `json:"type"`
	TaxID     string    `json:"tax_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Site is a physical or postal address belonging to a party.
type Site struct {
	ID        int64     `json:"id"`
	PartyID   int64     `json:"party_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactPoint is one way to reach a party.
type ContactPoint struct {
	ID        int64       `json:"id"`
	PartyID   int64       `json:"party_id"`
	Kind      ContactKind `json:"kind"`
	Value     string      `json:"value"`
	IsPrimary bool        `json:"is_primary"`
	CreatedAt time.Time   `json:"created_at"`
}

// TaxRate is a configured tax percentage.
type TaxRate struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Link marks a party as customer, supplier or both.
type Link struct {
	ID        int64     `json:"id"`
	PartyID   int64     `json:"party_id"`
	Role      PartyRole `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PartyDetail bundles a party with its sites, contacts and roles.
type PartyDetail struct {
	Party
	Sites    []Site         `json:"sites"`
	Contacts []ContactPoint `json:"contacts"`
	Links    []Link         `json:"links"`
}

// CreatePartyInput registers a party.
type CreatePartyInput struct {
	Name  string    `json:"name" validate:"required"`
	Type  PartyType `json:"type" validate:"required,oneof=PERSON ORGANIZATION"`
	TaxID string    `json:"tax_id"`
}

// UpdatePartyInput carries partial party updates.
type UpdatePartyInput struct {
	Name     *string `json:"name"`
	TaxID    *string `json:"tax_id"`
	IsActive *bool   `json:"is_active"`
}

// CreateSiteInput adds an address to a party.
type CreateSiteInput struct {
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country"`
	IsPrimary bool   `json:"is_primary"`
}

// CreateContactInput adds a contact point to a party.
type CreateContactInput struct {
	Kind      ContactKind `json:"kind" validate:"required,oneof=EMAIL PHONE"`
	Value     string      `json:"value" validate:"required"`
	IsPrimary bool        `json:"is_primary"`
}

// CreateTaxRateInput registers a tax rate.
type CreateTaxRateInput struct {
	Code string          `json:"code" validate:"required"`
	Name string          `json:"name" validate:"required"`
	Rate decimal.Decimal `json:"rate"`
}

// UpdateTaxRateInput carries partial tax rate updates.
type UpdateTaxRateInput struct {
	Name     *string          `json:"name"`
	Rate     *decimal.Decimal `json:"rate"`
	IsActive *bool            `json:"is_active"`
}

// CreateLinkInput assigns a role to a party.
type CreateLinkInput struct {
	PartyID int64     `json:"party_id" validate:"required"`
	Role    PartyRole `json:"role" validate:"required,oneof=CUSTOMER SUPPLIER"`
}
