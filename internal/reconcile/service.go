package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sierra-distribution/sierra/internal/platform/cache"
)

const lockTTL = 10 * time.Minute

// RepositoryPort lists the drift queries.
type RepositoryPort interface {
	ProductStockDrift(ctx context.Context) ([]Drift, error)
	AccountBalanceDrift(ctx context.Context) ([]Drift, error)
	CustomerOutstandingDrift(ctx context.Context) ([]Drift, error)
}

// Locker hands out the run lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error)
}

// DriftRecorder publishes drift counts, typically as Prometheus gauges.
type DriftRecorder interface {
	SetDrift(kind string, count int)
}

// Service runs reconciliation under a distributed lock.
type Service struct {
	repo    RepositoryPort
	locker  Locker
	metrics DriftRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the service. locker and metrics may be nil.
func NewService(repo RepositoryPort, locker Locker, metrics DriftRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, locker: locker, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Run checks every balance once. A concurrent run gets ErrRunInProgress.
func (s *Service) Run(ctx context.Context) (Report, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, LockKey, lockTTL)
		if errors.Is(err, cache.ErrLockNotObtained) {
			return Report{}, ErrRunInProgress
		}
		if err != nil {
			return Report{}, err
		}
		defer release(context.WithoutCancel(ctx))
	}

	start := s.now()
	results := make([][]Drift, len(Kinds))
	checks := map[Kind]func(context.Context) ([]Drift, error){
		KindProductStock:        s.repo.ProductStockDrift,
		KindAccountBalance:      s.repo.AccountBalanceDrift,
		KindCustomerOutstanding: s.repo.CustomerOutstandingDrift,
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		check := checks[kind]
		g.Go(func() (err error) {
			results[i], err = check(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{RanAt: start, Counts: make(map[Kind]int, len(Kinds)), Drifts: []Drift{}}
	for i, kind := range Kinds {
		report.Counts[kind] = len(results[i])
		report.Drifts = append(report.Drifts, results[i]...)
		if s.metrics != nil {
			s.metrics.SetDrift(string(kind), len(results[i]))
		}
	}
	report.Duration = s.now().Sub(start).String()
	if s.logger != nil {
		level := slog.LevelInfo
		if !report.Clean() {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "reconciliation finished",
			slog.Int("product_stock", report.Counts[KindProductStock]),
			slog.Int("account_balance", report.Counts[KindAccountBalance]),
			slog.Int("customer_outstanding", report.Counts[KindCustomerOutstanding]),
			slog.String("duration", report.Duration),
		)
	}
	return report, nil
}
