package report

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/ar"
)

type mockSources struct {
	apBucket ap.AgingBucket
	arBucket ar.AgingBucket
	apCalls  int
	arCalls  int
}

func (m *mockSources) apSource() APAgingSource { return (*apSourceFunc)(m) }
func (m *mockSources) arSource() ARAgingSource { return (*arSourceFunc)(m) }

type apSourceFunc mockSources

func (f *apSourceFunc) Aging(_ context.Context, _ time.Time) (ap.AgingBucket, error) {
	f.apCalls++
	return f.apBucket, nil
}

type arSourceFunc mockSources

func (f *arSourceFunc) Aging(_ context.Context, _ time.Time) (ar.AgingBucket, error) {
	f.arCalls++
	return f.arBucket, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T, sources *mockSources) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	fixed := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := NewService(slog.New(slog.DiscardHandler), client, sources.apSource(), sources.arSource())
	return svc.WithTTL(time.Minute).WithNow(func() time.Time { return fixed })
}

func TestAPAgingCachesSecondRead(t *testing.T) {
	sources := &mockSources{apBucket: ap.AgingBucket{
		Current:   dec("1000.00"),
		Bucket30:  dec("250.00"),
		Bucket60:  dec("0"),
		Bucket90:  dec("0"),
		Bucket120: dec("4000.00"),
	}}
	svc := newTestService(t, sources)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	first, err := svc.APAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, sources.apCalls)
	require.Equal(t, "2024-03-15", first.AsOf)
	require.True(t, first.Total.Equal(dec("5250.00")), "total %s", first.Total)
	require.Equal(t, "5,250.00", first.TotalDisplay)

	second, err := svc.APAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, sources.apCalls, "second read should come from cache")
	require.True(t, second.Total.Equal(first.Total))
}

func TestARAgingDistinctKeyPerDate(t *testing.T) {
	sources := &mockSources{arBucket: ar.AgingBucket{Current: dec("600.00")}}
	svc := newTestService(t, sources)

	_, err := svc.ARAging(context.Background(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = svc.ARAging(context.Background(), time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, sources.arCalls)
}

func TestRefreshWarmsBothReports(t *testing.T) {
	sources := &mockSources{
		apBucket: ap.AgingBucket{Current: dec("100.00")},
		arBucket: ar.AgingBucket{Bucket30: dec("75.00")},
	}
	svc := newTestService(t, sources)

	require.NoError(t, svc.Refresh(context.Background()))
	require.Equal(t, 1, sources.apCalls)
	require.Equal(t, 1, sources.arCalls)

	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	apRep, err := svc.APAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, sources.apCalls, "interactive read should hit the warmed cache")
	require.True(t, apRep.Total.Equal(dec("100.00")))

	arRep, err := svc.ARAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, sources.arCalls)
	require.True(t, arRep.Total.Equal(dec("75.00")))
}
