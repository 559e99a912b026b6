package ap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryState struct {
	counters  map[string]int64
	suppliers map[int64]Supplier
	invoices  map[int64]Invoice
	lines     map[int64]InvoiceLine
	payments  map[int64]Payment
	apps      map[int64]Application
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		counters:  make(map[string]int64, len(s.counters)),
		suppliers: make(map[int64]Supplier, len(s.suppliers)),
		invoices:  make(map[int64]Invoice, len(s.invoices)),
		lines:     make(map[int64]InvoiceLine, len(s.lines)),
		payments:  make(map[int64]Payment, len(s.payments)),
		apps:      make(map[int64]Application, len(s.apps)),
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	for k, v := range s.suppliers {
		out.suppliers[k] = v
	}
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.apps {
		out.apps[k] = v
	}
	return out
}

// memoryRepo backs Service with maps. WithTx snapshots state and restores it
// when fn fails, matching the rollback behaviour of the SQL repository.
type memoryRepo struct {
	state        *memoryState
	failLineFrom int // fail InsertInvoiceLine from this line number, 0 disables
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		counters:  make(map[string]int64),
		suppliers: make(map[int64]Supplier),
		invoices:  make(map[int64]Invoice),
		lines:     make(map[int64]InvoiceLine),
		payments:  make(map[int64]Payment),
		apps:      make(map[int64]Application),
	}}
}

var errInjected = errors.New("injected line failure")

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, (*memoryTx)(m)); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) GetSupplier(_ context.Context, id int64) (Supplier, error) {
	s, ok := m.state.suppliers[id]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, nil
}

func (m *memoryRepo) ListSuppliers(_ context.Context, page, perPage int) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range m.state.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memoryRepo) UpdateSupplier(_ context.Context, id int64, input UpdateSupplierInput) error {
	s, ok := m.state.suppliers[id]
	if !ok {
		return ErrSupplierNotFound
	}
	if input.Name != nil {
		s.Name = *input.Name
	}
	if input.Email != nil {
		s.Email = *input.Email
	}
	if input.Phone != nil {
		s.Phone = *input.Phone
	}
	if input.TaxID != nil {
		s.TaxID = *input.TaxID
	}
	if input.IsActive != nil {
		s.IsActive = *input.IsActive
	}
	m.state.suppliers[id] = s
	return nil
}

func (m *memoryRepo) DeleteSupplier(_ context.Context, id int64) error {
	if _, ok := m.state.suppliers[id]; !ok {
		return ErrSupplierNotFound
	}
	delete(m.state.suppliers, id)
	return nil
}

func (m *memoryRepo) CountInvoicesBySupplier(_ context.Context, supplierID int64) (int, error) {
	count := 0
	for _, inv := range m.state.invoices {
		if inv.SupplierID == supplierID {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return (*memoryTx)(m).GetInvoice(ctx, id)
}

func (m *memoryRepo) GetInvoiceWithLines(ctx context.Context, id int64) (InvoiceWithLines, error) {
	inv, err := m.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceWithLines{}, err
	}
	out := InvoiceWithLines{Invoice: inv}
	for _, line := range m.state.lines {
		if line.InvoiceID == id {
			out.Lines = append(out.Lines, line)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.state.invoices {
		if req.Status != "" && inv.Status != req.Status {
			continue
		}
		if req.SupplierID != 0 && inv.SupplierID != req.SupplierID {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListOutstanding(_ context.Context) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.state.invoices {
		if (inv.Status == InvoiceStatusPending || inv.Status == InvoiceStatusApproved) &&
			inv.AmountPaid.LessThan(inv.TotalAmount) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryRepo) VoidInvoice(_ context.Context, id int64, reason string) error {
	inv, ok := m.state.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	if inv.Status == InvoiceStatusCancelled || inv.AmountPaid.IsPositive() {
		return ErrInvoiceNotVoidable
	}
	inv.Status = InvoiceStatusCancelled
	inv.VoidReason = &reason
	m.state.invoices[id] = inv
	return nil
}

func (m *memoryRepo) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return (*memoryTx)(m).GetPayment(ctx, id)
}

func (m *memoryRepo) ListPayments(_ context.Context, page, perPage int) ([]Payment, int, error) {
	var out []Payment
	for _, p := range m.state.payments {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListApplicationsByPayment(_ context.Context, paymentID int64) ([]Application, error) {
	var out []Application
	for _, app := range m.state.apps {
		if app.PaymentID == paymentID {
			out = append(out, app)
		}
	}
	return out, nil
}

type memoryTx memoryRepo

func (t *memoryTx) NextID(_ context.Context, name string) (int64, error) {
	t.state.counters[name]++
	return t.state.counters[name], nil
}

func (t *memoryTx) InsertSupplier(_ context.Context, s Supplier) error {
	t.state.suppliers[s.ID] = s
	return nil
}

func (t *memoryTx) InsertInvoice(_ context.Context, inv Invoice) error {
	t.state.invoices[inv.ID] = inv
	return nil
}

func (t *memoryTx) InsertInvoiceLine(_ context.Context, line InvoiceLine) error {
	if t.failLineFrom > 0 && line.LineNumber >= t.failLineFrom {
		return errInjected
	}
	t.state.lines[line.ID] = line
	return nil
}

func (t *memoryTx) UpdateInvoiceHeader(_ context.Context, id int64, input UpdateInvoiceInput) error {
	inv, ok := t.state.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	if input.DueDate != nil {
		inv.DueDate = *input.DueDate
	}
	if input.Description != nil {
		inv.Description = *input.Description
	}
	if input.Status != nil {
		inv.Status = *input.Status
	}
	t.state.invoices[id] = inv
	return nil
}

func (t *memoryTx) InsertPayment(_ context.Context, p Payment) error {
	t.state.payments[p.ID] = p
	return nil
}

func (t *memoryTx) InsertApplication(_ context.Context, app Application) error {
	t.state.apps[app.ID] = app
	return nil
}

func (t *memoryTx) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := t.state.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (t *memoryTx) GetPayment(_ context.Context, id int64) (Payment, error) {
	p, ok := t.state.payments[id]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

func (t *memoryTx) GetActiveApplication(_ context.Context, id int64) (Application, error) {
	app, ok := t.state.apps[id]
	if !ok || app.Status != ApplicationStatusActive {
		return Application{}, ErrApplicationNotFound
	}
	return app, nil
}

func (t *memoryTx) ApplyToPayment(_ context.Context, id int64, amount decimal.Decimal) error {
	p, ok := t.state.payments[id]
	if !ok {
		return ErrPaymentNotFound
	}
	next := p.AmountApplied.Add(amount)
	if next.GreaterThan(p.TotalAmount) {
		return ErrOverapplied
	}
	p.AmountApplied = next
	if next.GreaterThanOrEqual(p.TotalAmount) {
		p.Status = PaymentStatusApplied
	} else {
		p.Status = PaymentStatusPending
	}
	t.state.payments[id] = p
	return nil
}

func (t *memoryTx) ApplyToInvoice(_ context.Context, id int64, amount decimal.Decimal) error {
	inv, ok := t.state.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	next := inv.AmountPaid.Add(amount)
	if next.GreaterThan(inv.TotalAmount) {
		return ErrOverapplied
	}
	inv.AmountPaid = next
	if next.GreaterThanOrEqual(inv.TotalAmount) {
		inv.Status = InvoiceStatusPaid
	} else {
		inv.Status = InvoiceStatusPending
	}
	t.state.invoices[id] = inv
	return nil
}

func (t *memoryTx) ReverseOnPayment(_ context.Context, id int64, amount decimal.Decimal) error {
	p, ok := t.state.payments[id]
	if !ok {
		return ErrPaymentNotFound
	}
	p.AmountApplied = p.AmountApplied.Sub(amount)
	if p.AmountApplied.GreaterThanOrEqual(p.TotalAmount) {
		p.Status = PaymentStatusApplied
	} else {
		p.Status = PaymentStatusPending
	}
	t.state.payments[id] = p
	return nil
}

func (t *memoryTx) ReverseOnInvoice(_ context.Context, id int64, amount decimal.Decimal) error {
	inv, ok := t.state.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.AmountPaid = inv.AmountPaid.Sub(amount)
	if inv.AmountPaid.GreaterThanOrEqual(inv.TotalAmount) {
		inv.Status = InvoiceStatusPaid
	} else {
		inv.Status = InvoiceStatusPending
	}
	t.state.invoices[id] = inv
	return nil
}

func (t *memoryTx) MarkApplicationReversed(_ context.Context, id int64) error {
	app, ok := t.state.apps[id]
	if !ok || app.Status != ApplicationStatusActive {
		return ErrApplicationNotFound
	}
	app.Status = ApplicationStatusReversed
	t.state.apps[id] = app
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo).WithNow(func() time.Time {
		return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	})
	return svc, repo
}

func mustSupplier(t *testing.T, svc *Service) Supplier {
	t.Helper()
	s, err := svc.CreateSupplier(context.Background(), CreateSupplierInput{Name: "Acme Parts"})
	require.NoError(t, err)
	return s
}

func mustInvoice(t *testing.T, svc *Service, supplierID int64, lines ...CreateInvoiceLineInput) InvoiceWithLines {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: supplierID,
		Currency:   "USD",
		DueDate:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines:      lines,
	})
	require.NoError(t, err)
	return inv
}

func mustPayment(t *testing.T, svc *Service, supplierID int64, amount string) Payment {
	t.Helper()
	p, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		SupplierID:  supplierID,
		TotalAmount: dec(amount),
	})
	require.NoError(t, err)
	return p
}

func TestCreateInvoiceComputesTotalsAndNumbers(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	require.Equal(t, "SUP000001", supplier.Number)

	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Description: "widgets", Quantity: dec("10"), UnitPrice: dec("100.00")},
		CreateInvoiceLineInput{Description: "freight", Quantity: dec("1"), UnitPrice: dec("100.00")},
	)
	require.Equal(t, "INV00000001", inv.Number)
	require.True(t, inv.TotalAmount.Equal(dec("1100.00")))
	require.True(t, inv.AmountPaid.IsZero())
	require.Equal(t, InvoiceStatusPending, inv.Status)
	require.Len(t, inv.Lines, 2)
	require.Equal(t, 1, inv.Lines[0].LineNumber)
	require.Equal(t, 2, inv.Lines[1].LineNumber)
	require.True(t, inv.Lines[0].LineAmount.Equal(dec("1000.00")))
}

func TestCreateInvoiceUnknownSupplier(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: 999,
		Lines:      []CreateInvoiceLineInput{{Quantity: dec("1"), UnitPrice: dec("5")}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateInvoiceRollsBackOnLineFailure(t *testing.T) {
	svc, repo := newTestService(t)
	supplier := mustSupplier(t, svc)
	repo.failLineFrom = 2

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: supplier.ID,
		Lines: []CreateInvoiceLineInput{
			{Quantity: dec("1"), UnitPrice: dec("10")},
			{Quantity: dec("1"), UnitPrice: dec("20")},
			{Quantity: dec("1"), UnitPrice: dec("30")},
		},
	})
	require.ErrorIs(t, err, errInjected)
	require.Empty(t, repo.state.invoices)
	require.Empty(t, repo.state.lines)
}

func TestApplyPaymentFullSettlesInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("1100.00")})
	payment := mustPayment(t, svc, supplier.ID, "1100.00")

	app, err := svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("1100.00"),
	})
	require.NoError(t, err)
	require.Equal(t, ApplicationStatusActive, app.Status)

	got, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.True(t, got.AmountPaid.Equal(dec("1100.00")))
	require.Equal(t, InvoiceStatusPaid, got.Status)
	require.True(t, got.Remaining().IsZero())

	p, err := svc.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusApplied, p.Status)
	require.True(t, p.Remaining().IsZero())
}

func TestApplyPaymentPartialKeepsInvoicePending(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("1100.00")})
	payment := mustPayment(t, svc, supplier.ID, "500.00")

	_, err := svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("500.00"),
	})
	require.NoError(t, err)

	got, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.True(t, got.AmountPaid.Equal(dec("500.00")))
	require.Equal(t, InvoiceStatusPending, got.Status)
	require.True(t, got.Remaining().Equal(dec("600.00")))

	p, err := svc.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusApplied, p.Status)
}

func TestApplyPaymentOverappliedLeavesRowsUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("1100.00")})
	payment := mustPayment(t, svc, supplier.ID, "500.00")

	_, err := svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("600.00"),
	})
	require.ErrorIs(t, err, ErrOverapplied)
	require.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.True(t, got.AmountPaid.IsZero())
	require.Equal(t, InvoiceStatusPending, got.Status)

	p, err := svc.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	require.True(t, p.AmountApplied.IsZero())
	require.Empty(t, repo.state.apps)
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("100.00")})
	payment := mustPayment(t, svc, supplier.ID, "100.00")

	_, err := svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("0"),
	})
	require.ErrorIs(t, err, ErrOverapplied)

	_, err = svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("-5"),
	})
	require.ErrorIs(t, err, ErrOverapplied)
}

func TestApplyPaymentToCancelledInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("100.00")})
	_, err := svc.VoidInvoice(context.Background(), inv.ID, VoidInvoiceInput{Reason: "withdrawn"})
	require.NoError(t, err)
	payment := mustPayment(t, svc, supplier.ID, "100.00")

	_, err = svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("100.00"),
	})
	require.ErrorIs(t, err, ErrInvoiceNotPayable)
}

func TestReverseApplicationRestoresBalances(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("1100.00")})
	payment := mustPayment(t, svc, supplier.ID, "1100.00")

	app, err := svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("1100.00"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReverseApplication(context.Background(), app.ID))

	got, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.True(t, got.AmountPaid.IsZero())
	require.Equal(t, InvoiceStatusPending, got.Status)

	p, err := svc.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	require.True(t, p.AmountApplied.IsZero())
	require.Equal(t, PaymentStatusPending, p.Status)

	err = svc.ReverseApplication(context.Background(), app.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateInvoiceRejectsDerivedStatus(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("1100.00")})

	for _, status := range []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusCancelled} {
		s := status
		_, err := svc.UpdateInvoice(context.Background(), inv.ID, UpdateInvoiceInput{Status: &s})
		require.ErrorIs(t, err, ErrStatusNotUpdatable)
	}

	got, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPending, got.Status)
	require.True(t, got.AmountPaid.IsZero())

	approved := InvoiceStatusApproved
	updated, err := svc.UpdateInvoice(context.Background(), inv.ID, UpdateInvoiceInput{Status: &approved})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusApproved, updated.Status)
}

func TestVoidInvoiceRecordsReason(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("300.00")})

	got, err := svc.VoidInvoice(context.Background(), inv.ID, VoidInvoiceInput{Reason: "duplicate entry"})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusCancelled, got.Status)
	require.NotNil(t, got.VoidReason)
	require.Equal(t, "duplicate entry", *got.VoidReason)

	_, err = svc.VoidInvoice(context.Background(), inv.ID, VoidInvoiceInput{Reason: "again"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVoidInvoiceBlockedByAppliedPayments(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	inv := mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("1100.00")})
	payment := mustPayment(t, svc, supplier.ID, "500.00")

	_, err := svc.ApplyPayment(context.Background(), payment.ID, ApplyPaymentInput{
		InvoiceID: inv.ID, Amount: dec("500.00"),
	})
	require.NoError(t, err)

	_, err = svc.VoidInvoice(context.Background(), inv.ID, VoidInvoiceInput{Reason: "attempt"})
	require.ErrorIs(t, err, ErrInvoiceNotVoidable)

	got, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPending, got.Status)
	require.Nil(t, got.VoidReason)
}

func TestDeleteSupplierBlockedByInvoices(t *testing.T) {
	svc, _ := newTestService(t)
	supplier := mustSupplier(t, svc)
	mustInvoice(t, svc, supplier.ID,
		CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec("10.00")})

	err := svc.DeleteSupplier(context.Background(), supplier.ID)
	require.ErrorIs(t, err, ErrSupplierHasInvoices)
	require.ErrorIs(t, err, shared.ErrDependencyExists)

	other := mustSupplier(t, svc)
	require.NoError(t, svc.DeleteSupplier(context.Background(), other.ID))
}

func TestAgingBuckets(t *testing.T) {
	svc, repo := newTestService(t)
	supplier := mustSupplier(t, svc)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	due := func(daysAgo int) time.Time { return asOf.AddDate(0, 0, -daysAgo) }
	mk := func(amount string, dueDate time.Time) {
		inv := mustInvoice(t, svc, supplier.ID,
			CreateInvoiceLineInput{Quantity: dec("1"), UnitPrice: dec(amount)})
		stored := repo.state.invoices[inv.ID]
		stored.DueDate = dueDate
		repo.state.invoices[inv.ID] = stored
	}
	mk("100.00", due(-10)) // not yet due
	mk("200.00", due(15))
	mk("300.00", due(45))
	mk("400.00", due(75))
	mk("500.00", due(200))

	bucket, err := svc.Aging(context.Background(), asOf)
	require.NoError(t, err)
	require.True(t, bucket.Current.Equal(dec("100.00")))
	require.True(t, bucket.Bucket30.Equal(dec("200.00")))
	require.True(t, bucket.Bucket60.Equal(dec("300.00")))
	require.True(t, bucket.Bucket90.Equal(dec("400.00")))
	require.True(t, bucket.Bucket120.Equal(dec("500.00")))
}
