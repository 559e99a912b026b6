package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryState struct {
	counters map[string]int64
	accounts map[int64]Account
	entries  map[int64]Entry
	lines    map[int64]Line
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		counters: make(map[string]int64, len(s.counters)),
		accounts: make(map[int64]Account, len(s.accounts)),
		entries:  make(map[int64]Entry, len(s.entries)),
		lines:    make(map[int64]Line, len(s.lines)),
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = v
	}
	return out
}

type memoryRepo struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		counters: make(map[string]int64),
		accounts: make(map[int64]Account),
		entries:  make(map[int64]Entry),
		lines:    make(map[int64]Line),
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

func (m *memoryRepo) GetAccount(_ context.Context, id int64) (Account, error) {
	a, ok := m.state.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryRepo) ListAccounts(_ context.Context, accountType AccountType) ([]Account, error) {
	var out []Account
	for _, a := range m.state.accounts {
		if accountType != "" && a.Type != accountType {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryRepo) UpdateAccount(_ context.Context, id int64, input UpdateAccountInput) error {
	a, ok := m.state.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if input.Name != nil {
		a.Name = *input.Name
	}
	if input.IsActive != nil {
		a.IsActive = *input.IsActive
	}
	m.state.accounts[id] = a
	return nil
}

func (m *memoryRepo) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := m.state.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(m.state.accounts, id)
	return nil
}

func (m *memoryRepo) CountLinesByAccount(_ context.Context, accountID int64) (int, error) {
	count := 0
	for _, line := range m.state.lines {
		if line.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return (*memoryTx)(m).GetEntry(ctx, id)
}

func (m *memoryRepo) GetEntryWithLines(ctx context.Context, id int64) (EntryWithLines, error) {
	e, err := m.GetEntry(ctx, id)
	if err != nil {
		return EntryWithLines{}, err
	}
	out := EntryWithLines{Entry: e}
	for _, line := range m.state.lines {
		if line.EntryID == id {
			out.Lines = append(out.Lines, line)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListEntries(_ context.Context, req ListEntriesRequest) ([]Entry, int, error) {
	var out []Entry
	for _, e := range m.state.entries {
		if req.Status != "" && e.Status != req.Status {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

type memoryTx memoryRepo

func (t *memoryTx) NextID(_ context.Context, name string) (int64, error) {
	t.state.counters[name]++
	return t.state.counters[name], nil
}

func (t *memoryTx) InsertAccount(_ context.Context, a Account) error {
	t.state.accounts[a.ID] = a
	return nil
}

func (t *memoryTx) GetEntry(_ context.Context, id int64) (Entry, error) {
	e, ok := t.state.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (t *memoryTx) InsertEntry(_ context.Context, e Entry) error {
	t.state.entries[e.ID] = e
	return nil
}

func (t *memoryTx) InsertLine(_ context.Context, line Line) error {
	t.state.lines[line.ID] = line
	return nil
}

func (t *memoryTx) UpdateEntryHeader(_ context.Context, e Entry) error {
	stored, ok := t.state.entries[e.ID]
	if !ok {
		return ErrEntryNotFound
	}
	stored.Date = e.Date
	stored.Description = e.Description
	stored.TotalDebit = e.TotalDebit
	stored.TotalCredit = e.TotalCredit
	t.state.entries[e.ID] = stored
	return nil
}

func (t *memoryTx) DeleteLines(_ context.Context, entryID int64) error {
	for id, line := range t.state.lines {
		if line.EntryID == entryID {
			delete(t.state.lines, id)
		}
	}
	return nil
}

func (t *memoryTx) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := t.state.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(t.state.entries, id)
	return nil
}

func (t *memoryTx) MarkPosted(_ context.Context, id, postedBy int64) error {
	e, ok := t.state.entries[id]
	if !ok || e.Status != EntryStatusDraft {
		return ErrAlreadyPosted
	}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	e.Status = EntryStatusPosted
	e.PostedBy = &postedBy
	e.PostedAt = &now
	t.state.entries[id] = e
	return nil
}

func (t *memoryTx) MarkVoid(_ context.Context, id int64, reason string) error {
	e, ok := t.state.entries[id]
	if !ok || e.Status == EntryStatusVoid {
		return ErrEntryVoid
	}
	e.Status = EntryStatusVoid
	e.VoidReason = reason
	t.state.entries[id] = e
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	refs := 0
	svc := NewService(repo).
		WithNow(func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }).
		WithSourceRef(func() string { refs++; return fmt.Sprintf("ref-%d", refs) })
	return svc, repo
}

func balancedLines(debitAccount, creditAccount int64, amount string) []CreateLineInput {
	return []CreateLineInput{
		{AccountID: debitAccount, DebitAmount: dec(amount)},
		{AccountID: creditAccount, CreditAmount: dec(amount)},
	}
}

func mustEntry(t *testing.T, svc *Service, lines []CreateLineInput) EntryWithLines {
	t.Helper()
	entry, err := svc.CreateEntry(context.Background(), CreateEntryInput{
		Date:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: lines,
	})
	require.NoError(t, err)
	return entry
}

func TestCreateEntryBalanced(t *testing.T) {
	svc, _ := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "250.00"))

	require.Equal(t, "JE00000001", entry.EntryID)
	require.Equal(t, EntryStatusDraft, entry.Status)
	require.True(t, entry.TotalDebit.Equal(dec("250.00")))
	require.True(t, entry.TotalCredit.Equal(dec("250.00")))
	require.Len(t, entry.Lines, 2)
	require.Equal(t, "ref-1", entry.SourceRef)
}

func TestCreateEntryUnbalancedWritesNothing(t *testing.T) {
	svc, repo := newTestService(t)
	_, err := svc.CreateEntry(context.Background(), CreateEntryInput{
		Lines: []CreateLineInput{
			{AccountID: 10, DebitAmount: dec("100.00")},
			{AccountID: 20, CreditAmount: dec("90.00")},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.state.entries)
	require.Empty(t, repo.state.lines)
}

func TestCreateEntryWithinTolerance(t *testing.T) {
	svc, _ := newTestService(t)
	// A one cent discrepancy is absorbed by the rounding tolerance.
	entry, err := svc.CreateEntry(context.Background(), CreateEntryInput{
		Lines: []CreateLineInput{
			{AccountID: 10, DebitAmount: dec("100.00")},
			{AccountID: 20, CreditAmount: dec("100.01")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)
}

func TestCreateEntryRejectsEmptyAndNegativeLines(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateEntry(context.Background(), CreateEntryInput{
		Lines: []CreateLineInput{
			{AccountID: 10},
			{AccountID: 20},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateEntry(context.Background(), CreateEntryInput{
		Lines: []CreateLineInput{
			{AccountID: 10, DebitAmount: dec("-5.00")},
			{AccountID: 20, CreditAmount: dec("-5.00")},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPostEntryLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "100.00"))

	posted, err := svc.PostEntry(context.Background(), entry.ID, 7)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	require.Equal(t, int64(7), *posted.PostedBy)
	require.NotNil(t, posted.PostedAt)

	_, err = svc.PostEntry(context.Background(), entry.ID, 7)
	require.ErrorIs(t, err, ErrAlreadyPosted)
}

func TestPostVoidEntryRejected(t *testing.T) {
	svc, _ := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "100.00"))

	_, err := svc.PostEntry(context.Background(), entry.ID, 1)
	require.NoError(t, err)
	_, err = svc.VoidEntry(context.Background(), entry.ID, VoidEntryInput{Reason: "duplicate"})
	require.NoError(t, err)

	_, err = svc.PostEntry(context.Background(), entry.ID, 1)
	require.ErrorIs(t, err, ErrEntryVoid)
}

func TestVoidDraftEntry(t *testing.T) {
	svc, _ := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "100.00"))

	voided, err := svc.VoidEntry(context.Background(), entry.ID, VoidEntryInput{Reason: "entered in error"})
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, voided.Status)
	require.Equal(t, "entered in error", voided.VoidReason)

	_, err = svc.VoidEntry(context.Background(), entry.ID, VoidEntryInput{Reason: "again"})
	require.ErrorIs(t, err, ErrEntryVoid)
}

func TestUpdatePostedEntryRejected(t *testing.T) {
	svc, _ := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "100.00"))
	_, err := svc.PostEntry(context.Background(), entry.ID, 1)
	require.NoError(t, err)

	desc := "edited"
	_, err = svc.UpdateEntry(context.Background(), entry.ID, UpdateEntryInput{Description: &desc})
	require.ErrorIs(t, err, ErrPostedImmutable)
}

func TestUpdateDraftReplacesLines(t *testing.T) {
	svc, repo := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "100.00"))

	updated, err := svc.UpdateEntry(context.Background(), entry.ID, UpdateEntryInput{
		Lines: balancedLines(30, 40, "75.00"),
	})
	require.NoError(t, err)
	require.True(t, updated.TotalDebit.Equal(dec("75.00")))
	require.Len(t, updated.Lines, 2)
	require.Len(t, repo.state.lines, 2)
}

func TestUpdateDraftUnbalancedKeepsOldLines(t *testing.T) {
	svc, repo := newTestService(t)
	entry := mustEntry(t, svc, balancedLines(10, 20, "100.00"))

	_, err := svc.UpdateEntry(context.Background(), entry.ID, UpdateEntryInput{
		Lines: []CreateLineInput{
			{AccountID: 10, DebitAmount: dec("50.00")},
			{AccountID: 20, CreditAmount: dec("20.00")},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)

	got, err := svc.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.True(t, got.TotalDebit.Equal(dec("100.00")))
	require.Len(t, repo.state.lines, 2)
}

func TestDeleteEntry(t *testing.T) {
	svc, repo := newTestService(t)
	draft := mustEntry(t, svc, balancedLines(10, 20, "100.00"))
	require.NoError(t, svc.DeleteEntry(context.Background(), draft.ID))
	require.Empty(t, repo.state.entries)
	require.Empty(t, repo.state.lines)

	posted := mustEntry(t, svc, balancedLines(10, 20, "100.00"))
	_, err := svc.PostEntry(context.Background(), posted.ID, 1)
	require.NoError(t, err)
	err = svc.DeleteEntry(context.Background(), posted.ID)
	require.ErrorIs(t, err, ErrPostedImmutable)
}

func TestDeleteAccountBlockedByLines(t *testing.T) {
	svc, _ := newTestService(t)
	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Code: "1000", Name: "Cash", Type: AccountTypeAsset,
	})
	require.NoError(t, err)
	mustEntry(t, svc, balancedLines(account.ID, 20, "10.00"))

	err = svc.DeleteAccount(context.Background(), account.ID)
	require.ErrorIs(t, err, ErrAccountInUse)
	require.ErrorIs(t, err, shared.ErrDependencyExists)
}
