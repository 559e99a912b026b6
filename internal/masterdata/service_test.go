package masterdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	counters map[string]int64
	parties  map[int64]Party
	sites    map[int64]Site
	contacts map[int64]ContactPoint
	taxRates map[int64]TaxRate
	links    map[int64]Link
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		counters: make(map[string]int64),
		parties:  make(map[int64]Party),
		sites:    make(map[int64]Site),
		contacts: make(map[int64]ContactPoint),
		taxRates: make(map[int64]TaxRate),
		links:    make(map[int64]Link),
	}
}

// Master data tx scopes are single-insert, so the fake runs fn directly.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, (*memoryTx)(m))
}

func (m *memoryRepo) GetParty(_ context.Context, id int64) (Party, error) {
	p, ok := m.parties[id]
	if !ok {
		return Party{}, ErrPartyNotFound
	}
	return p, nil
}

func (m *memoryRepo) ListParties(_ context.Context, page, perPage int) ([]Party, int, error) {
	var out []Party
	for _, p := range m.parties {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) UpdateParty(_ context.Context, id int64, input UpdatePartyInput) error {
	p, ok := m.parties[id]
	if !ok {
		return ErrPartyNotFound
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.TaxID != nil {
		p.TaxID = *input.TaxID
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	m.parties[id] = p
	return nil
}

func (m *memoryRepo) DeleteParty(_ context.Context, id int64) error {
	if _, ok := m.parties[id]; !ok {
		return ErrPartyNotFound
	}
	delete(m.parties, id)
	return nil
}

func (m *memoryRepo) CountPartyDependents(_ context.Context, partyID int64) (int, error) {
	count := 0
	for _, s := range m.sites {
		if s.PartyID == partyID {
			count++
		}
	}
	for _, c := range m.contacts {
		if c.PartyID == partyID {
			count++
		}
	}
	for _, l := range m.links {
		if l.PartyID == partyID {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) ListSites(_ context.Context, partyID int64) ([]Site, error) {
	var out []Site
	for _, s := range m.sites {
		if s.PartyID == partyID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) DeleteSite(_ context.Context, partyID, siteID int64) error {
	s, ok := m.sites[siteID]
	if !ok || s.PartyID != partyID {
		return ErrSiteNotFound
	}
	delete(m.sites, siteID)
	return nil
}

func (m *memoryRepo) ListContacts(_ context.Context, partyID int64) ([]ContactPoint, error) {
	var out []ContactPoint
	for _, c := range m.contacts {
		if c.PartyID == partyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) DeleteContact(_ context.Context, partyID, contactID int64) error {
	c, ok := m.contacts[contactID]
	if !ok || c.PartyID != partyID {
		return ErrContactNotFound
	}
	delete(m.contacts, contactID)
	return nil
}

func (m *memoryRepo) GetTaxRate(_ context.Context, id int64) (TaxRate, error) {
	tr, ok := m.taxRates[id]
	if !ok {
		return TaxRate{}, ErrTaxRateNotFound
	}
	return tr, nil
}

func (m *memoryRepo) ListTaxRates(_ context.Context) ([]TaxRate, error) {
	var out []TaxRate
	for _, tr := range m.taxRates {
		out = append(out, tr)
	}
	return out, nil
}

func (m *memoryRepo) UpdateTaxRate(_ context.Context, id int64, input UpdateTaxRateInput) error {
	tr, ok := m.taxRates[id]
	if !ok {
		return ErrTaxRateNotFound
	}
	if input.Name != nil {
		tr.Name = *input.Name
	}
	if input.Rate != nil {
		tr.Rate = *input.Rate
	}
	if input.IsActive != nil {
		tr.IsActive = *input.IsActive
	}
	m.taxRates[id] = tr
	return nil
}

func (m *memoryRepo) ListLinks(_ context.Context, partyID int64) ([]Link, error) {
	var out []Link
	for _, l := range m.links {
		if partyID == 0 || l.PartyID == partyID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryRepo) DeleteLink(_ context.Context, id int64) error {
	if _, ok := m.links[id]; !ok {
		return ErrLinkNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *memoryRepo) HasActiveLink(_ context.Context, partyID int64, role PartyRole) (bool, error) {
	for _, l := range m.links {
		if l.PartyID == partyID && l.Role == role && l.IsActive {
			return true, nil
		}
	}
	return false, nil
}

type memoryTx memoryRepo

func (t *memoryTx) NextID(_ context.Context, name string) (int64, error) {
	t.counters[name]++
	return t.counters[name], nil
}

func (t *memoryTx) InsertParty(_ context.Context, p Party) error {
	t.parties[p.ID] = p
	return nil
}

func (t *memoryTx) InsertSite(_ context.Context, s Site) error {
	t.sites[s.ID] = s
	return nil
}

func (t *memoryTx) InsertContact(_ context.Context, c ContactPoint) error {
	t.contacts[c.ID] = c
	return nil
}

func (t *memoryTx) InsertTaxRate(_ context.Context, tr TaxRate) error {
	t.taxRates[tr.ID] = tr
	return nil
}

func (t *memoryTx) InsertLink(_ context.Context, l Link) error {
	t.links[l.ID] = l
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newMemoryRepo()).WithNow(func() time.Time {
		return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	})
}

func TestCreatePartyMintsNumber(t *testing.T) {
	svc := newTestService(t)
	party, err := svc.CreateParty(context.Background(), CreatePartyInput{
		Name: "Globex", Type: PartyTypeOrganization,
	})
	require.NoError(t, err)
	require.Equal(t, "PTY000001", party.Number)
	require.True(t, party.IsActive)
}

func TestDeletePartyBlockedByDependents(t *testing.T) {
	svc := newTestService(t)
	party, err := svc.CreateParty(context.Background(), CreatePartyInput{
		Name: "Globex", Type: PartyTypeOrganization,
	})
	require.NoError(t, err)
	_, err = svc.AddSite(context.Background(), party.ID, CreateSiteInput{Name: "HQ"})
	require.NoError(t, err)

	err = svc.DeleteParty(context.Background(), party.ID)
	require.ErrorIs(t, err, ErrPartyHasDependents)
	require.ErrorIs(t, err, shared.ErrDependencyExists)
}

func TestCustomerExistsRequiresActiveLink(t *testing.T) {
	svc := newTestService(t)
	party, err := svc.CreateParty(context.Background(), CreatePartyInput{
		Name: "Initech", Type: PartyTypeOrganization,
	})
	require.NoError(t, err)

	ok, err := svc.CustomerExists(context.Background(), party.ID)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.CreateLink(context.Background(), CreateLinkInput{PartyID: party.ID, Role: RoleCustomer})
	require.NoError(t, err)

	ok, err = svc.CustomerExists(context.Background(), party.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

type faultyPartyRepo struct {
	Repository
	err error
}

func (r *faultyPartyRepo) GetParty(context.Context, int64) (Party, error) {
	return Party{}, r.err
}

func TestCustomerExistsPropagatesLookupFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	svc := NewService(&faultyPartyRepo{Repository: newMemoryRepo(), err: storeErr})

	_, err := svc.CustomerExists(context.Background(), 1)
	require.ErrorIs(t, err, storeErr)
}

func TestCreateLinkRejectsDuplicateRole(t *testing.T) {
	svc := newTestService(t)
	party, err := svc.CreateParty(context.Background(), CreatePartyInput{
		Name: "Initech", Type: PartyTypeOrganization,
	})
	require.NoError(t, err)

	_, err = svc.CreateLink(context.Background(), CreateLinkInput{PartyID: party.ID, Role: RoleSupplier})
	require.NoError(t, err)
	_, err = svc.CreateLink(context.Background(), CreateLinkInput{PartyID: party.ID, Role: RoleSupplier})
	require.ErrorIs(t, err, shared.ErrConflict)
}
