// Package subscription implements the plan purchase lifecycle: payment
// creation, verification, direct activation of free plans and the
// subscription status view.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nusapalma/nusapalma/internal/access"
	"github.com/nusapalma/nusapalma/internal/apperr"
	"github.com/nusapalma/nusapalma/internal/lib/paymentid"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/metrics"
	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/plan"
	"github.com/nusapalma/nusapalma/internal/storage"
)

const (
	// PaymentTTL is how long a pending payment can be verified.
	PaymentTTL = 24 * time.Hour

	createAttempts  = 3
	defaultCacheTTL = time.Hour

	sourcePayment   = "payment"
	sourceSubscribe = "subscribe"
)

// User-facing messages.
const (
	MsgInvalidMethod    = "Metode pembayaran tidak valid"
	MsgPaidPlanRequired = "Paket berbayar harus melalui halaman pembayaran"
	MsgPaymentExpired   = "Pembayaran sudah kadaluarsa"

	resourcePayment = "Pembayaran"
	resourceUser    = "Pengguna"
)

// UserRepository is the user storage the service needs.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateSubscription(ctx context.Context, id, planKey string, start time.Time, end *time.Time) error
}

// PaymentRepository is the payment storage the service needs.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetPaymentForUser(ctx context.Context, paymentID, userID string) (*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error)
	TransitionPayment(ctx context.Context, paymentID string, from, to models.PaymentStatus, verifiedAt *time.Time) error
	// VerifyAndActivate moves a pending payment to verified and writes the
	// user's tier window atomically.
	VerifyAndActivate(ctx context.Context, paymentID, userID, planKey string, verifiedAt time.Time, end *time.Time) error
}

// Publisher sends lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Cache stores subscription snapshots.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// IDGenerator produces payment ids.
type IDGenerator interface {
	Next() string
}

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	Payment      *models.Payment      `json:"payment"`
	Subscription *models.Subscription `json:"subscription"`
}

// Service runs the lifecycle operations.
type Service struct {
	catalog  *plan.Catalog
	users    UserRepository
	payments PaymentRepository
	verifier PaymentVerifier
	events   Publisher
	cache    Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	ids      IDGenerator
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithVerifier replaces the ManualVerifier.
func WithVerifier(v PaymentVerifier) Option { return func(s *Service) { s.verifier = v } }

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithCache enables the subscription snapshot cache.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics sets the lifecycle counters.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(s *Service) { s.log = log } }

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator sets the payment id source.
func WithIDGenerator(g IDGenerator) Option { return func(s *Service) { s.ids = g } }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

// NewService returns a Service over the given catalog and repositories.
func NewService(catalog *plan.Catalog, users UserRepository, payments PaymentRepository, opts ...Option) *Service {
	s := &Service{
		catalog:  catalog,
		users:    users,
		payments: payments,
		verifier: ManualVerifier{},
		events:   noopPublisher{},
		cacheTTL: defaultCacheTTL,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = paymentid.New(paymentid.WithClock(s.now))
	}
	return s
}

// GetPlans returns a copy of the whole catalog.
func (s *Service) GetPlans() map[string]plan.Plan {
	return s.catalog.All()
}

// CreatePayment records a pending payment for planKey. The amount is the
// catalog price at this moment. Repeated calls create independent payments.
func (s *Service) CreatePayment(ctx context.Context, userID, planKey, method string) (*models.Payment, error) {
	const op = "subscription.CreatePayment"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	p, err := s.catalog.Get(planKey)
	if err != nil {
		return nil, err
	}
	if !models.ValidPaymentMethod(method) {
		return nil, apperr.Validation(MsgInvalidMethod)
	}
	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var created *models.Payment
	for attempt := 1; ; attempt++ {
		created, err = s.payments.CreatePayment(ctx, &models.Payment{
			PaymentID: s.ids.Next(),
			UserID:    userID,
			Plan:      planKey,
			Amount:    p.Price,
			Method:    method,
			Status:    models.PaymentPending,
			ExpiresAt: now.Add(PaymentTTL),
			CreatedAt: now,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrAlreadyExists) || attempt == createAttempts {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Warn("payment id collision, retrying", slog.Int("attempt", attempt))
	}

	log.Info("payment created",
		slog.String("payment_id", created.PaymentID),
		slog.String("plan", planKey),
		slog.String("method", method))
	s.metrics.PaymentCreated(planKey, method)
	s.publish(ctx, models.EventPaymentCreated, models.PaymentCreatedEvent{
		Email:     user.Email,
		Name:      user.Name,
		PaymentID: created.PaymentID,
		Plan:      created.Plan,
		Amount:    created.Amount,
		Method:    created.Method,
		ExpiresAt: created.ExpiresAt,
	})
	return created, nil
}

// VerifyPayment confirms a pending payment owned by userID and activates its
// plan on the user. A payment past its expiry is moved to expired instead.
// Payments of other users are reported as not found.
func (s *Service) VerifyPayment(ctx context.Context, userID, paymentID string) (*VerifyResult, error) {
	const op = "subscription.VerifyPayment"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID), slog.String("payment_id", paymentID))

	p, err := s.payments.GetPaymentForUser(ctx, paymentID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(resourcePayment)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !p.IsPending() {
		return nil, notPendingError(p.Status)
	}

	now := s.now()
	if now.After(p.ExpiresAt) {
		err := s.payments.TransitionPayment(ctx, p.PaymentID, models.PaymentPending, models.PaymentExpired, nil)
		if err != nil && !errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("payment expired", slog.Time("expires_at", p.ExpiresAt))
		s.metrics.PaymentExpired(p.Plan)
		return nil, apperr.Validation(MsgPaymentExpired)
	}

	granted, err := s.catalog.Get(p.Plan)
	if err != nil {
		return nil, err
	}
	if err = s.verifier.Verify(ctx, p); err != nil {
		return nil, err
	}

	end := endDate(granted, now)
	if err = s.payments.VerifyAndActivate(ctx, p.PaymentID, userID, granted.Key, now, end); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, s.conflictError(ctx, paymentID, userID)
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NotFound(resourceUser)
		}
		log.Error("failed to verify payment", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.Status = models.PaymentVerified
	p.VerifiedAt = &now
	log.Info("payment verified", slog.String("plan", p.Plan), slog.Int64("amount", p.Amount))
	s.metrics.PaymentVerified(p.Plan)

	sub := s.activated(ctx, userID, granted.Key, now, end, sourcePayment, p.PaymentID)
	return &VerifyResult{Payment: p, Subscription: sub}, nil
}

// Subscribe activates a zero-price plan directly. Paid plans must go through a payment.
func (s *Service) Subscribe(ctx context.Context, userID, planKey string) (*models.Subscription, error) {
	const op = "subscription.Subscribe"

	p, err := s.catalog.Get(planKey)
	if err != nil {
		return nil, err
	}
	if !p.IsFree() {
		return nil, apperr.Validation(MsgPaidPlanRequired)
	}
	sub, err := s.activate(ctx, userID, p, s.now())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// snapshot is the cached part of a user's subscription. Activity is never cached.
type snapshot struct {
	Plan      string     `json:"plan"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// GetMySubscription returns the stored tier of userID together with the
// values derived from it at read time. Nothing is written.
func (s *Service) GetMySubscription(ctx context.Context, userID string) (*models.SubscriptionStatus, error) {
	const op = "subscription.GetMySubscription"

	snap, err := s.loadSnapshot(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	details, err := s.catalog.Get(snap.Plan)
	if err != nil {
		details, err = s.catalog.Get(plan.Free)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	now := s.now()
	return &models.SubscriptionStatus{
		CurrentPlan:   snap.Plan,
		PlanDetails:   details,
		StartDate:     snap.StartDate,
		EndDate:       snap.EndDate,
		IsActive:      access.Active(snap.EndDate, now),
		EffectivePlan: access.EffectivePlan(snap.Plan, snap.EndDate, now),
	}, nil
}

// ListPayments returns a page of the user's payments, newest first.
func (s *Service) ListPayments(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	const op = "subscription.ListPayments"

	payments, err := s.payments.ListPaymentsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

func (s *Service) loadSnapshot(ctx context.Context, op, userID string) (*snapshot, error) {
	key := cacheKey(userID)
	if s.cache != nil {
		var snap snapshot
		found, err := s.cache.Get(ctx, key, &snap)
		if err != nil {
			s.log.Warn("failed to read subscription cache", sl.Op(op), slog.String("key", key), sl.Err(err))
		} else if found {
			return &snap, nil
		}
	}

	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{
		Plan:      user.SubscriptionPlan,
		StartDate: user.SubscriptionStartDate,
		EndDate:   user.SubscriptionEndDate,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snap, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache subscription", sl.Op(op), slog.String("key", key), sl.Err(err))
		}
	}
	return snap, nil
}

// activate writes the free plan p onto the user starting at now.
func (s *Service) activate(ctx context.Context, userID string, p plan.Plan, now time.Time) (*models.Subscription, error) {
	end := endDate(p, now)
	if err := s.users.UpdateSubscription(ctx, userID, p.Key, now, end); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(resourceUser)
		}
		return nil, err
	}
	return s.activated(ctx, userID, p.Key, now, end, sourceSubscribe, ""), nil
}

// activated runs after a tier window was stored: it drops the cached
// snapshot and announces the activation.
func (s *Service) activated(ctx context.Context, userID, planKey string, start time.Time, end *time.Time, source, paymentID string) *models.Subscription {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cacheKey(userID)); err != nil {
			s.log.Warn("failed to invalidate subscription cache", slog.String("user_id", userID), sl.Err(err))
		}
	}

	s.log.Info("subscription activated",
		slog.String("user_id", userID),
		slog.String("plan", planKey),
		slog.String("source", source))
	s.metrics.SubscriptionActivated(planKey, source)

	if user, err := s.users.GetUserByID(ctx, userID); err != nil {
		s.log.Warn("failed to load user for event", slog.String("user_id", userID), sl.Err(err))
	} else {
		s.publish(ctx, models.EventSubscriptionActivated, models.SubscriptionActivatedEvent{
			Email:     user.Email,
			Name:      user.Name,
			Plan:      planKey,
			StartDate: start,
			EndDate:   end,
			PaymentID: paymentID,
		})
	}

	return &models.Subscription{Plan: planKey, StartDate: start, EndDate: end}
}

// endDate is the end of a window of p starting at start; nil means unlimited.
func endDate(p plan.Plan, start time.Time) *time.Time {
	if p.DurationDays == nil {
		return nil
	}
	e := start.Add(time.Duration(*p.DurationDays) * 24 * time.Hour)
	return &e
}

func (s *Service) getUser(ctx context.Context, op, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(resourceUser)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// conflictError describes a payment that left pending between our read and our write.
func (s *Service) conflictError(ctx context.Context, paymentID, userID string) error {
	p, err := s.payments.GetPaymentForUser(ctx, paymentID, userID)
	if err != nil || p.IsPending() {
		return notPendingError(models.PaymentVerified)
	}
	return notPendingError(p.Status)
}

func (s *Service) publish(ctx context.Context, routingKey string, event any) {
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("failed to publish event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

func notPendingError(status models.PaymentStatus) error {
	switch status {
	case models.PaymentVerified:
		return apperr.Validation("Pembayaran sudah diverifikasi")
	case models.PaymentExpired:
		return apperr.Validation(MsgPaymentExpired)
	default:
		return apperr.Validation("Pembayaran sudah dibatalkan")
	}
}

func cacheKey(userID string) string {
	return "subscription:" + userID
}
