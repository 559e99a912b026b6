package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service implements master data use cases.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the master data service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// CustomerExists reports whether a party exists and carries an active
// customer role. AR uses this before accepting documents.
func (s *Service) CustomerExists(ctx context.Context, partyID int64) (bool, error) {
	if _, err := s.repo.GetParty(ctx, partyID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.HasActiveLink(ctx, partyID, RoleCustomer)
}

func (s *Service) CreateParty(ctx context.Context, input CreatePartyInput) (Party, error) {
	var created Party
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqParty)
		if err != nil {
			return err
		}
		created = Party{
			ID:        id,
			Number:    sequence.FormatDocumentNumber("PTY", id, 6),
			Name:      input.Name,
			Type:      input.Type,
			TaxID:     input.TaxID,
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		}
		created.UpdatedAt = created.CreatedAt
		return tx.InsertParty(ctx, created)
	})
	if err != nil {
		return Party{}, err
	}
	return created, nil
}

func (s *Service) GetPartyDetail(ctx context.Context, id int64) (PartyDetail, error) {
	party, err := s.repo.GetParty(ctx, id)
	if err != nil {
		return PartyDetail{}, err
	}
	sites, err := s.repo.ListSites(ctx, id)
	if err != nil {
		return PartyDetail{}, err
	}
	contacts, err := s.repo.ListContacts(ctx, id)
	if err != nil {
		return PartyDetail{}, err
	}
	links, err := s.repo.ListLinks(ctx, id)
	if err != nil {
		return PartyDetail{}, err
	}
	return PartyDetail{Party: party, Sites: sites, Contacts: contacts, Links: links}, nil
}

func (s *Service) ListParties(ctx context.Context, page, perPage int) ([]Party, shared.Pagination, error) {
	parties, total, err := s.repo.ListParties(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return parties, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) UpdateParty(ctx context.Context, id int64, input UpdatePartyInput) (Party, error) {
	if err := s.repo.UpdateParty(ctx, id, input); err != nil {
		return Party{}, err
	}
	return s.repo.GetParty(ctx, id)
}

// DeleteParty hard-deletes a party with no dependent records.
func (s *Service) DeleteParty(ctx context.Context, id int64) error {
	if _, err := s.repo.GetParty(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountPartyDependents(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrPartyHasDependents
	}
	return s.repo.DeleteParty(ctx, id)
}

func (s *Service) AddSite(ctx context.Context, partyID int64, input CreateSiteInput) (Site, error) {
	if _, err := s.repo.GetParty(ctx, partyID); err != nil {
		return Site{}, err
	}
	var created Site
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqPartySite)
		if err != nil {
			return err
		}
		created = Site{
			ID:        id,
			PartyID:   partyID,
			Name:      input.Name,
			Address:   input.Address,
			City:      input.City,
			Country:   input.Country,
			IsPrimary: input.IsPrimary,
			CreatedAt: s.now().UTC(),
		}
		return tx.InsertSite(ctx, created)
	})
	if err != nil {
		return Site{}, err
	}
	return created, nil
}

func (s *Service) RemoveSite(ctx context.Context, partyID, siteID int64) error {
	return s.repo.DeleteSite(ctx, partyID, siteID)
}

func (s *Service) AddContact(ctx context.Context, partyID int64, input CreateContactInput) (ContactPoint, error) {
	if _, err := s.repo.GetParty(ctx, partyID); err != nil {
		return ContactPoint{}, err
	}
	var created ContactPoint
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqPartyContact)
		if err != nil {
			return err
		}
		created = ContactPoint{
			ID:        id,
			PartyID:   partyID,
			Kind:      input.Kind,
			Value:     input.Value,
			IsPrimary: input.IsPrimary,
			CreatedAt: s.now().UTC(),
		}
		return tx.InsertContact(ctx, created)
	})
	if err != nil {
		return ContactPoint{}, err
	}
	return created, nil
}

func (s *Service) RemoveContact(ctx context.Context, partyID, contactID int64) error {
	return s.repo.DeleteContact(ctx, partyID, contactID)
}

func (s *Service) CreateTaxRate(ctx context.Context, input CreateTaxRateInput) (TaxRate, error) {
	if input.Rate.IsNegative() {
		return TaxRate{}, shared.ErrValidation
	}
	var created TaxRate
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqTaxRate)
		if err != nil {
			return err
		}
		created = TaxRate{
			ID:        id,
			Code:      input.Code,
			Name:      input.Name,
			Rate:      input.Rate,
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		}
		created.UpdatedAt = created.CreatedAt
		return tx.InsertTaxRate(ctx, created)
	})
	if err != nil {
		return TaxRate{}, err
	}
	return created, nil
}

func (s *Service) GetTaxRate(ctx context.Context, id int64) (TaxRate, error) {
	return s.repo.GetTaxRate(ctx, id)
}

func (s *Service) ListTaxRates(ctx context.Context) ([]TaxRate, error) {
	return s.repo.ListTaxRates(ctx)
}

func (s *Service) UpdateTaxRate(ctx context.Context, id int64, input UpdateTaxRateInput) (TaxRate, error) {
	if input.Rate != nil && input.Rate.IsNegative() {
		return TaxRate{}, shared.ErrValidation
	}
	if err := s.repo.UpdateTaxRate(ctx, id, input); err != nil {
		return TaxRate{}, err
	}
	return s.repo.GetTaxRate(ctx, id)
}

func (s *Service) CreateLink(ctx context.Context, input CreateLinkInput) (Link, error) {
	if _, err := s.repo.GetParty(ctx, input.PartyID); err != nil {
		return Link{}, err
	}
	exists, err := s.repo.HasActiveLink(ctx, input.PartyID, input.Role)
	if err != nil {
		return Link{}, err
	}
	if exists {
		return Link{}, shared.ErrConflict
	}
	var created Link
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqCustomerSupplier)
		if err != nil {
			return err
		}
		created = Link{
			ID:        id,
			PartyID:   input.PartyID,
			Role:      input.Role,
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		}
		return tx.InsertLink(ctx, created)
	})
	if err != nil {
		return Link{}, err
	}
	return created, nil
}

func (s *Service) ListLinks(ctx context.Context, partyID int64) ([]Link, error) {
	return s.repo.ListLinks(ctx, partyID)
}

func (s *Service) DeleteLink(ctx context.Context, id int64) error {
	return s.repo.DeleteLink(ctx, id)
}
