package payments

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Payment, error)
	Get(ctx context.Context, id int64) (Payment, error)
}

// Service coordinates the payment ledger.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditPort
	idempotency shared.IdempotencyPort
	cache       shared.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. audit, idem and cache may be nil.
func NewService(repo RepositoryPort, audit shared.AuditPort, idem shared.IdempotencyPort, cache shared.Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record books a payment against an order or as standalone customer credit.
func (s *Service) Record(ctx context.Context, in RecordInput, idemKey string) (Payment, error) {
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	posting := Posting{Tender: in.Tender, OrderID: in.OrderID, CreatedBy: shared.ActorID(ctx), Now: s.now()}
	if in.CustomerID != nil {
		posting.CustomerID = *in.CustomerID
	}
	var out Payment
	err := shared.Guard(ctx, s.idempotency, idemKey, "payments", func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			out, err = Post(ctx, tx, posting)
			return err
		})
	})
	if err != nil {
		return Payment{}, err
	}
	meta := map[string]any{"amount": out.Amount.String(), "method": out.Method, "customer_id": out.CustomerID}
	if out.OrderID != nil {
		meta["order_id"] = *out.OrderID
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "payments:recorded",
		Entity:   "payment",
		EntityID: strconv.FormatInt(out.ID, 10),
		Meta:     meta,
	})
	return out, nil
}

// TransitionCheque moves a pending cheque to passed or returned.
func (s *Service) TransitionCheque(ctx context.Context, id int64, next shared.ChequeStatus) (Payment, error) {
	actor := shared.ActorID(ctx)
	var out Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = Transition(ctx, tx, id, next, actor)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "payments:cheque_" + string(next),
		Entity:   "payment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"amount": out.Amount.String(), "cheque_number": out.ChequeNumber},
	})
	return out, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	if filter.ChequeStatus != "" {
		switch filter.ChequeStatus {
		case shared.ChequePending, shared.ChequePassed, shared.ChequeReturned:
		default:
			return nil, shared.Invalid("cheque_status must be one of [pending passed returned]")
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	return s.repo.Get(ctx, id)
}
