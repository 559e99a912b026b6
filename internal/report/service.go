package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/ar"
)

const defaultTTL = 5 * time.Minute

// APAgingSource produces payables aging buckets.
type APAgingSource interface {
	Aging(ctx context.Context, asOf time.Time) (ap.AgingBucket, error)
}

// ARAgingSource produces receivables aging buckets.
type ARAgingSource interface {
	Aging(ctx context.Context, asOf time.Time) (ar.AgingBucket, error)
}

// AgingReport is the cached report payload.
type AgingReport struct {
	Kind         string          `json:"kind"`
	AsOf         string          `json:"as_of"`
	Current      decimal.Decimal `json:"current"`
	Bucket30     decimal.Decimal `json:"bucket_30"`
	Bucket60     decimal.Decimal `json:"bucket_60"`
	Bucket90     decimal.Decimal `json:"bucket_90"`
	Bucket120    decimal.Decimal `json:"bucket_120"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
}

// Service serves aging reports through a Redis cache. Concurrent misses on
// the same key collapse into one upstream computation.
type Service struct {
	logger  *slog.Logger
	cache   *redis.Client
	apSrc   APAgingSource
	arSrc   ARAgingSource
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	printer *message.Printer
}

// NewService constructs the report service.
func NewService(logger *slog.Logger, cache *redis.Client, apSrc APAgingSource, arSrc ARAgingSource) *Service {
	return &Service{
		logger:  logger,
		cache:   cache,
		apSrc:   apSrc,
		arSrc:   arSrc,
		ttl:     defaultTTL,
		now:     time.Now,
		printer: message.NewPrinter(language.English),
	}
}

// WithTTL overrides the cache lifetime.
func (s *Service) WithTTL(ttl time.Duration) *Service {
	s.ttl = ttl
	return s
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// APAging returns the payables aging report as of the given date.
func (s *Service) APAging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	return s.cached(ctx, "ap", asOf, func(ctx context.Context) (AgingReport, error) {
		bucket, err := s.apSrc.Aging(ctx, asOf)
		if err != nil {
			return AgingReport{}, err
		}
		return s.build("ap", asOf, bucket.Current, bucket.Bucket30, bucket.Bucket60, bucket.Bucket90, bucket.Bucket120), nil
	})
}

// ARAging returns the receivables aging report as of the given date.
func (s *Service) ARAging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	return s.cached(ctx, "ar", asOf, func(ctx context.Context) (AgingReport, error) {
		bucket, err := s.arSrc.Aging(ctx, asOf)
		if err != nil {
			return AgingReport{}, err
		}
		return s.build("ar", asOf, bucket.Current, bucket.Bucket30, bucket.Bucket60, bucket.Bucket90, bucket.Bucket120), nil
	})
}

// Refresh recomputes both reports for today and rewrites the cache. The
// worker runs this on a schedule so interactive reads stay warm.
func (s *Service) Refresh(ctx context.Context) error {
	asOf := s.now().UTC()
	apBucket, err := s.apSrc.Aging(ctx, asOf)
	if err != nil {
		return fmt.Errorf("report: refresh ap aging: %w", err)
	}
	if err := s.store(ctx, s.build("ap", asOf, apBucket.Current, apBucket.Bucket30, apBucket.Bucket60, apBucket.Bucket90, apBucket.Bucket120)); err != nil {
		return err
	}
	arBucket, err := s.arSrc.Aging(ctx, asOf)
	if err != nil {
		return fmt.Errorf("report: refresh ar aging: %w", err)
	}
	return s.store(ctx, s.build("ar", asOf, arBucket.Current, arBucket.Bucket30, arBucket.Bucket60, arBucket.Bucket90, arBucket.Bucket120))
}

func cacheKey(kind string, asOf time.Time) string {
	return fmt.Sprintf("report:%s-aging:%s", kind, asOf.Format("2006-01-02"))
}

func (s *Service) cached(ctx context.Context, kind string, asOf time.Time, compute func(context.Context) (AgingReport, error)) (AgingReport, error) {
	key := cacheKey(kind, asOf)
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err == nil {
		var cachedReport AgingReport
		if err := json.Unmarshal(raw, &cachedReport); err == nil {
			return cachedReport, nil
		}
		// Unreadable cache entries fall through to a recompute.
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("report cache read failed", "key", key, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		built, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.store(ctx, built); err != nil {
			s.logger.Warn("report cache write failed", "key", key, "error", err)
		}
		return built, nil
	})
	if err != nil {
		return AgingReport{}, err
	}
	return v.(AgingReport), nil
}

func (s *Service) store(ctx context.Context, rep AgingReport) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	asOf, err := time.Parse("2006-01-02", rep.AsOf)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cacheKey(rep.Kind, asOf), raw, s.ttl).Err()
}

func (s *Service) build(kind string, asOf time.Time, current, b30, b60, b90, b120 decimal.Decimal) AgingReport {
	total := current.Add(b30).Add(b60).Add(b90).Add(b120)
	f, _ := total.Float64()
	return AgingReport{
		Kind:         kind,
		AsOf:         asOf.Format("2006-01-02"),
		Current:      current,
		Bucket30:     b30,
		Bucket60:     b60,
		Bucket90:     b90,
		Bucket120:    b120,
		Total:        total,
		TotalDisplay: s.printer.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2))),
	}
}
