package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reconcile/internal/contact/metrics"
	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
	dErrors "reconcile/pkg/domain-errors"
	"reconcile/pkg/platform/sentinel"
	"reconcile/pkg/requestcontext"
)

// DefaultLockAttempts bounds how often a locked unit is re-entered with a
// widened key set before the request fails with a conflict.
const DefaultLockAttempts = 5

// Service reconciles observations into contact clusters and serves their
// consolidated views.
type Service struct {
	store        Store
	tx           ContactStoreTx
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	lockAttempts int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithLockAttempts overrides DefaultLockAttempts. Non-positive values are ignored.
func WithLockAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lockAttempts = n
		}
	}
}

// New constructs a Service. store serves the unlocked pre-reads that seed
// lock keys; tx runs every read-modify-write unit.
func New(store Store, tx ContactStoreTx, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("contact store is required")
	}
	if tx == nil {
		return nil, errors.New("contact transaction runner is required")
	}
	s := &Service{
		store:        store,
		tx:           tx,
		logger:       slog.Default(),
		tracer:       otel.Tracer("reconcile/contact"),
		lockAttempts: DefaultLockAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Identify resolves obs against the contact graph and returns the
// consolidated view of the resulting cluster. Resolution and assembly run
// in the same locked unit, so the view reflects the resolver's writes.
func (s *Service) Identify(ctx context.Context, obs models.Observation) (*models.ConsolidatedView, error) {
	start := time.Now()
	defer s.metrics.ObserveIdentify(start)

	ctx, span := s.tracer.Start(ctx, "contact.Identify",
		trace.WithAttributes(
			attribute.Bool("contact.has_email", obs.HasEmail()),
			attribute.Bool("contact.has_phone", obs.HasPhone()),
		))
	defer span.End()

	if obs.IsZero() {
		err := dErrors.New(dErrors.CodeValidation, "email or phoneNumber is required")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	keys := observationKeys(obs)
	seed, err := s.store.FindByEmailOrPhone(ctx, obs.Email(), obs.PhoneNumber())
	if err != nil {
		return nil, s.fail(ctx, span, storageError(err, "failed to find candidate contacts"))
	}
	keys.addRoots(seed)

	var (
		res  Resolution
		view *models.ConsolidatedView
	)
	for attempt := 1; ; attempt++ {
		err = s.tx.RunInTx(ctx, keys.sorted(), func(ctx context.Context, store Store) error {
			candidates, err := store.FindByEmailOrPhone(ctx, obs.Email(), obs.PhoneNumber())
			if err != nil {
				return storageError(err, "failed to find candidate contacts")
			}
			if !keys.covers(candidates) {
				keys.addRoots(candidates)
				return errLockSetChanged
			}
			res, err = resolveCandidates(ctx, store, obs, candidates)
			if err != nil {
				return err
			}
			view, err = Assemble(ctx, store, res.PrimaryID)
			return err
		})
		if !errors.Is(err, errLockSetChanged) {
			break
		}
		s.metrics.IncrementLockRetry()
		if attempt >= s.lockAttempts {
			err = dErrors.New(dErrors.CodeConflict, "contact cluster changed concurrently, retry the request")
			break
		}
	}
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	s.metrics.IncrementIdentify(res.Outcome())
	s.metrics.AddDemoted(res.Relinked)
	span.SetAttributes(
		attribute.Int64("contact.primary_id", res.PrimaryID.Int64()),
		attribute.String("contact.outcome", res.Outcome()),
	)
	if len(res.Absorbed) > 0 {
		s.logger.InfoContext(ctx, "contact clusters merged",
			"request_id", requestcontext.RequestID(ctx),
			"primary_id", res.PrimaryID,
			"absorbed", res.Absorbed,
			"relinked", res.Relinked,
		)
	}
	return view, nil
}

// View returns the consolidated view of the cluster containing contactID.
func (s *Service) View(ctx context.Context, contactID id.ContactID) (*models.ConsolidatedView, error) {
	start := time.Now()
	defer s.metrics.ObserveView(start)

	ctx, span := s.tracer.Start(ctx, "contact.View",
		trace.WithAttributes(attribute.Int64("contact.id", contactID.Int64())))
	defer span.End()

	contact, err := s.store.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contact not found")
		}
		return nil, s.fail(ctx, span, storageError(err, "failed to load contact"))
	}

	root := contact.RootID()
	var view *models.ConsolidatedView
	for attempt := 1; ; attempt++ {
		err = s.tx.RunInTx(ctx, []string{rootKey(root)}, func(ctx context.Context, store Store) error {
			current, err := store.FindByID(ctx, contactID)
			if err != nil {
				return storageError(err, "failed to load contact")
			}
			if current.RootID() != root {
				root = current.RootID()
				return errLockSetChanged
			}
			view, err = Assemble(ctx, store, root)
			return err
		})
		if !errors.Is(err, errLockSetChanged) {
			break
		}
		s.metrics.IncrementLockRetry()
		if attempt >= s.lockAttempts {
			err = dErrors.New(dErrors.CodeConflict, "contact cluster changed concurrently, retry the request")
			break
		}
	}
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	return view, nil
}

// fail records err on the span, escalating consistency violations.
func (s *Service) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if IsConsistencyViolation(err) {
		s.metrics.IncrementConsistencyViolation()
		s.logger.ErrorContext(ctx, "contact graph consistency violation",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return err
}
