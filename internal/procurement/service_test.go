package procurement

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryState struct {
	counters   map[string]int64
	agreements map[int64]Agreement
	lines      map[int64]Line
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		counters:   make(map[string]int64, len(s.counters)),
		agreements: make(map[int64]Agreement, len(s.agreements)),
		lines:      make(map[int64]Line, len(s.lines)),
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	for k, v := range s.agreements {
		out.agreements[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = v
	}
	return out
}

type memoryRepo struct {
	state *memoryState

	// failLineFrom makes InsertLine fail once this many lines exist.
	failLineFrom int
}

var errInjected = errors.New("injected failure")

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		counters:   make(map[string]int64),
		agreements: make(map[int64]Agreement),
		lines:      make(map[int64]Line),
	}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, (*memoryTx)(m)); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) GetAgreement(_ context.Context, id int64) (Agreement, error) {
	a, ok := m.state.agreements[id]
	if !ok {
		return Agreement{}, ErrAgreementNotFound
	}
	return a, nil
}

func (m *memoryRepo) GetAgreementWithLines(ctx context.Context, id int64) (AgreementWithLines, error) {
	a, err := m.GetAgreement(ctx, id)
	if err != nil {
		return AgreementWithLines{}, err
	}
	out := AgreementWithLines{Agreement: a}
	for _, line := range m.state.lines {
		if line.AgreementID == id {
			out.Lines = append(out.Lines, line)
		}
	}
	sort.Slice(out.Lines, func(i, j int) bool { return out.Lines[i].LineNumber < out.Lines[j].LineNumber })
	return out, nil
}

func (m *memoryRepo) ListAgreements(_ context.Context, page, perPage int) ([]Agreement, int, error) {
	var out []Agreement
	for _, a := range m.state.agreements {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *memoryRepo) UpdateAgreement(_ context.Context, id int64, input UpdateAgreementInput) error {
	a, ok := m.state.agreements[id]
	if !ok {
		return ErrAgreementNotFound
	}
	if input.Status != nil {
		a.Status = *input.Status
	}
	if input.EndDate != nil {
		a.EndDate = *input.EndDate
	}
	if input.Description != nil {
		a.Description = *input.Description
	}
	m.state.agreements[id] = a
	return nil
}

type memoryTx memoryRepo

func (t *memoryTx) NextID(_ context.Context, name string) (int64, error) {
	t.state.counters[name]++
	return t.state.counters[name], nil
}

func (t *memoryTx) InsertAgreement(_ context.Context, a Agreement) error {
	t.state.agreements[a.ID] = a
	return nil
}

func (t *memoryTx) InsertLine(_ context.Context, line Line) error {
	if t.failLineFrom > 0 && len(t.state.lines) >= t.failLineFrom {
		return errInjected
	}
	t.state.lines[line.ID] = line
	return nil
}

type staticSuppliers map[int64]bool

func (s staticSuppliers) SupplierExists(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(repo *memoryRepo) *Service {
	fixed := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return NewService(repo, staticSuppliers{7: true}).WithNow(func() time.Time { return fixed })
}

func agreementInput() CreateAgreementInput {
	return CreateAgreementInput{
		SupplierID:  7,
		StartDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Description: "annual packaging supply",
		CreatedBy:   3,
		Lines: []CreateLineInput{
			{Description: "corrugated boxes", Quantity: dec("1000"), UnitPrice: dec("2.50")},
			{Description: "pallet wrap", Quantity: dec("200"), UnitPrice: dec("12.00")},
		},
	}
}

func TestCreateAgreementComputesTotalsAndNumber(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	got, err := svc.CreateAgreement(context.Background(), agreementInput())
	require.NoError(t, err)

	require.Equal(t, "PA00000001", got.Number)
	require.Equal(t, AgreementStatusDraft, got.Status)
	require.True(t, got.TotalAmount.Equal(dec("4900.00")), "total %s", got.TotalAmount)
	require.Len(t, got.Lines, 2)
	require.Equal(t, 1, got.Lines[0].LineNumber)
	require.True(t, got.Lines[0].LineAmount.Equal(dec("2500.00")))
	require.True(t, got.Lines[1].LineAmount.Equal(dec("2400.00")))
}

func TestCreateAgreementUnknownSupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	input := agreementInput()
	input.SupplierID = 99
	_, err := svc.CreateAgreement(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.state.agreements)
}

func TestCreateAgreementRollsBackOnLineFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failLineFrom = 1
	svc := newTestService(repo)

	_, err := svc.CreateAgreement(context.Background(), agreementInput())
	require.ErrorIs(t, err, errInjected)

	require.Empty(t, repo.state.agreements)
	require.Empty(t, repo.state.lines)
	require.Zero(t, repo.state.counters["PURCHASE_AGREEMENT_ID_SEQ"])
}

func TestUpdateAgreementPartial(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	created, err := svc.CreateAgreement(context.Background(), agreementInput())
	require.NoError(t, err)

	active := AgreementStatusActive
	got, err := svc.UpdateAgreement(context.Background(), created.ID, UpdateAgreementInput{Status: &active})
	require.NoError(t, err)
	require.Equal(t, AgreementStatusActive, got.Status)
	require.Equal(t, "annual packaging supply", got.Description)
	require.Len(t, got.Lines, 2)
}

func TestUpdateAgreementNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	active := AgreementStatusActive
	_, err := svc.UpdateAgreement(context.Background(), 42, UpdateAgreementInput{Status: &active})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
