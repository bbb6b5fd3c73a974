// Package scheduler finds subscriptions that end tomorrow and publishes a
// reminder event for each of them.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/models"
)

// Reminders are computed on Indonesian western time calendar days.
var wib = time.FixedZone("WIB", 7*60*60)

const markTTL = 48 * time.Hour

// SubscriptionRepository lists subscriptions by end date.
type SubscriptionRepository interface {
	ListSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.SubscriptionDue, error)
}

// Publisher sends events to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Marker remembers which reminders were already sent.
type Marker interface {
	MarkOnce(ctx context.Context, key string, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Service publishes expiry reminders.
type Service struct {
	repo   SubscriptionRepository
	events Publisher
	marker Marker
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. marker may be nil, in which case a user is
// reminded on every run that sees their subscription.
func NewService(repo SubscriptionRepository, events Publisher, marker Marker, log *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		events: events,
		marker: marker,
		log:    log,
		now:    now,
	}
}

// TomorrowWindow returns the half-open range covering the calendar day after now in WIB.
func TomorrowWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(wib)
	start := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, wib)
	return start, start.AddDate(0, 0, 1)
}

// NotifyExpiringTomorrow publishes a subscription.expiring event for every
// active paid subscription ending tomorrow. It returns how many were published.
func (s *Service) NotifyExpiringTomorrow(ctx context.Context) (int, error) {
	const op = "scheduler.NotifyExpiringTomorrow"
	log := s.log.With(sl.Op(op))

	from, to := TomorrowWindow(s.now())
	log.Info("looking for subscriptions ending tomorrow", slog.Time("from", from), slog.Time("to", to))

	due, err := s.repo.ListSubscriptionsEndingBetween(ctx, from, to)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(due) == 0 {
		log.Info("no expiring subscriptions found")
		return 0, nil
	}

	sent := 0
	for _, d := range due {
		key := "reminded:" + d.UserID + ":" + d.EndDate.In(wib).Format(time.DateOnly)
		marked := false
		if s.marker != nil {
			first, err := s.marker.MarkOnce(ctx, key, markTTL)
			if err != nil {
				log.Warn("failed to mark reminder, sending anyway", slog.String("user_id", d.UserID), sl.Err(err))
			} else if !first {
				continue
			}
			marked = err == nil
		}
		err := s.events.Publish(ctx, models.EventSubscriptionExpiring, models.SubscriptionExpiringEvent{
			Email:   d.Email,
			Name:    d.Name,
			Plan:    d.Plan,
			EndDate: d.EndDate,
		})
		if err != nil {
			log.Error("failed to publish message", slog.String("user_id", d.UserID), sl.Err(err))
			// The next run must retry this user.
			if marked {
				if err := s.marker.Invalidate(ctx, key); err != nil {
					log.Error("failed to clear reminder mark", slog.String("user_id", d.UserID), sl.Err(err))
				}
			}
			continue
		}
		sent++
	}
	log.Info("expiry reminders published", slog.Int("found", len(due)), slog.Int("sent", sent))
	return sent, nil
}

// Runner runs NotifyExpiringTomorrow on a fixed interval.
type Runner struct {
	scheduler gocron.Scheduler
	log       *slog.Logger
}

// NewRunner registers the reminder job. The first run starts immediately.
func NewRunner(ctx context.Context, svc *Service, interval time.Duration, log *slog.Logger) (*Runner, error) {
	const op = "scheduler.NewRunner"

	s, err := gocron.NewScheduler(gocron.WithLocation(wib))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			_, _ = svc.NotifyExpiringTomorrow(ctx)
		}, ctx),
		gocron.WithName("subscription-expiry-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Runner{scheduler: s, log: log}, nil
}

// Start begins scheduling.
func (r *Runner) Start() {
	r.log.Info("starting reminder scheduler")
	r.scheduler.Start()
}

// Stop waits for a running job and stops the scheduler.
func (r *Runner) Stop() error {
	r.log.Info("stopping reminder scheduler")
	return r.scheduler.Shutdown()
}
