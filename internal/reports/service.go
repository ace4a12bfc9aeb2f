package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// RepositoryPort lists the aggregate queries reports depend on.
type RepositoryPort interface {
	Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	CostOfGoodsSold(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	Purchases(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	ExpensesByCategory(ctx context.Context, from, to time.Time) ([]ExpenseLine, error)
	StockValueBefore(ctx context.Context, before time.Time) (decimal.Decimal, error)
	CashBefore(ctx context.Context, before time.Time) (decimal.Decimal, error)
	Receivables(ctx context.Context) (decimal.Decimal, error)
	Payables(ctx context.Context, asOf time.Time) (decimal.Decimal, error)
}

// Service builds reports through the versioned cache. Identical concurrent requests share one
// build.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a repository with the cache. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ProfitLoss reports revenue, cost of goods sold, expenses and net profit for the period.
func (s *Service) ProfitLoss(ctx context.Context, from, to time.Time) (ProfitLoss, error) {
	period, err := s.period(from, to)
	if err != nil {
		return ProfitLoss{}, err
	}
	var out ProfitLoss
	err = s.fetch(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildProfitLoss(ctx, period)
	}, "profit_loss", day(period.From), day(period.To))
	return out, err
}

func (s *Service) buildProfitLoss(ctx context.Context, p Period) (ProfitLoss, error) {
	out := ProfitLoss{Period: p}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Revenue, err = s.repo.Revenue(ctx, p.From, p.To)
		return err
	})
	g.Go(func() (err error) {
		out.CostOfGoodsSold, err = s.repo.CostOfGoodsSold(ctx, p.From, p.To)
		return err
	})
	g.Go(func() (err error) {
		out.Expenses, err = s.repo.ExpensesByCategory(ctx, p.From, p.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return ProfitLoss{}, err
	}
	if out.Expenses == nil {
		out.Expenses = []ExpenseLine{}
	}
	out.TotalExpenses = decimal.Zero
	for _, line := range out.Expenses {
		out.TotalExpenses = out.TotalExpenses.Add(line.Amount)
	}
	out.GrossProfit = out.Revenue.Sub(out.CostOfGoodsSold)
	out.NetProfit = out.GrossProfit.Sub(out.TotalExpenses)
	return out, nil
}

// TradingAccount reports opening stock, purchases, closing stock and sales for the period.
// Gross profit is sales + closing stock − opening stock − purchases.
func (s *Service) TradingAccount(ctx context.Context, from, to time.Time) (TradingAccount, error) {
	period, err := s.period(from, to)
	if err != nil {
		return TradingAccount{}, err
	}
	var out TradingAccount
	err = s.fetch(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildTradingAccount(ctx, period)
	}, "trading_account", day(period.From), day(period.To))
	return out, err
}

func (s *Service) buildTradingAccount(ctx context.Context, p Period) (TradingAccount, error) {
	out := TradingAccount{Period: p}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.OpeningStock, err = s.repo.StockValueBefore(ctx, p.From)
		return err
	})
	g.Go(func() (err error) {
		out.ClosingStock, err = s.repo.StockValueBefore(ctx, p.To.AddDate(0, 0, 1))
		return err
	})
	g.Go(func() (err error) {
		out.Purchases, err = s.repo.Purchases(ctx, p.From, p.To)
		return err
	})
	g.Go(func() (err error) {
		out.Sales, err = s.repo.Revenue(ctx, p.From, p.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return TradingAccount{}, err
	}
	out.GrossProfit = out.Sales.Add(out.ClosingStock).Sub(out.OpeningStock).Sub(out.Purchases)
	return out, nil
}

// BalanceSheet reports assets, liabilities and equity at the end of asOf. A zero date means today.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	asOf = truncate(asOf)
	var out BalanceSheet
	err := s.fetch(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildBalanceSheet(ctx, asOf)
	}, "balance_sheet", day(asOf))
	return out, err
}

func (s *Service) buildBalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	out := BalanceSheet{AsOf: asOf}
	end := asOf.AddDate(0, 0, 1)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Assets.CashAndBank, err = s.repo.CashBefore(ctx, end)
		return err
	})
	g.Go(func() (err error) {
		out.Assets.Receivables, err = s.repo.Receivables(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Assets.Stock, err = s.repo.StockValueBefore(ctx, end)
		return err
	})
	g.Go(func() (err error) {
		out.Liabilities.Payables, err = s.repo.Payables(ctx, asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		return BalanceSheet{}, err
	}
	out.Assets.Total = out.Assets.CashAndBank.Add(out.Assets.Receivables).Add(out.Assets.Stock)
	out.Liabilities.Total = out.Liabilities.Payables
	out.Equity = out.Assets.Total.Sub(out.Liabilities.Total)
	return out, nil
}

// fetch serves dest from the cache, collapsing concurrent builds of the same key. When Redis is
// unreachable the report is built directly.
func (s *Service) fetch(ctx context.Context, dest any, build func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("report cache unavailable", slog.String("report", parts[0]), slog.Any("error", err))
		}
		return NewCache(nil, 0).FetchJSON(ctx, "", dest, build)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &raw, build)
		return raw, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

func (s *Service) period(from, to time.Time) (Period, error) {
	if to.IsZero() {
		to = s.today()
	}
	to = truncate(to)
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	from = truncate(from)
	if from.After(to) {
		return Period{}, shared.Invalid("from must not be after to")
	}
	return Period{From: from, To: to}, nil
}

func (s *Service) today() time.Time {
	return truncate(s.now())
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) string {
	return t.Format(time.DateOnly)
}
