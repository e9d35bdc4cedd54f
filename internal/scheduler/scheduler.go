package scheduler

import (
	"annictgram/internal/domain"
	"annictgram/internal/syncer"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	DefaultSweepTimeout   = 15 * time.Minute
)

type SubscriptionLister interface {
	GetAllSubscriptions(ctx context.Context) ([]domain.Subscription, error)
}

type Syncer interface {
	Sync(ctx context.Context, sub domain.Subscription) (syncer.Result, error)
}

type Dispatcher interface {
	Deliver(ctx context.Context, sub domain.Subscription, activities []domain.Activity) error
}

// Scheduler periodically syncs every subscription and hands the new
// activities to the dispatcher.
type Scheduler struct {
	ctx          context.Context
	cron         *cron.Cron
	interval     time.Duration
	sweepTimeout time.Duration
	subs         SubscriptionLister
	syncer       Syncer
	dispatcher   Dispatcher
	log          *slog.Logger
}

func New(
	ctx context.Context,
	interval time.Duration,
	subs SubscriptionLister,
	syncer Syncer,
	dispatcher Dispatcher,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		ctx:          ctx,
		cron:         c,
		interval:     interval,
		sweepTimeout: max(interval, DefaultSweepTimeout),
		subs:         subs,
		syncer:       syncer,
		dispatcher:   dispatcher,
		log:          log,
	}
}

func (s *Scheduler) Start() error {
	spec := "@every " + s.interval.String()

	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("add func %q: %w", spec, err)
	}

	s.cron.Start()

	s.log.InfoContext(s.ctx, "Scheduler is started",
		"interval", s.interval.String())

	return nil
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, s.sweepTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	stats := s.Sweep(ctx)

	s.log.InfoContext(ctx, "Sweep is finished",
		"subscriptionCount", stats.Subscriptions,
		"failedCount", stats.Failed,
		"activityCount", stats.Activities)
}

type SweepStats struct {
	Subscriptions int
	Failed        int
	Activities    int
}

// Sweep syncs subscriptions one at a time. A failing subscription is logged
// and skipped; its checkpoint is left as it was.
func (s *Scheduler) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats

	subs, err := s.subs.GetAllSubscriptions(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get all subscriptions",
			"error", err)
		return stats
	}

	stats.Subscriptions = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			s.log.InfoContext(ctx, "Scheduler context is done",
				"error", ctx.Err())
			return stats
		}

		result, syncErr := s.syncer.Sync(ctx, sub)
		if syncErr != nil {
			stats.Failed++
			s.logSyncError(ctx, sub, syncErr)

			continue
		}

		stats.Activities += len(result.Activities)

		if err = s.dispatcher.Deliver(ctx, sub, result.Activities); err != nil {
			s.log.ErrorContext(ctx, "Failed to deliver activities",
				"error", err,
				"subscriptionID", sub.ID,
				"chatID", sub.ChatID,
				"account", sub.AccountName,
				"activityCount", len(result.Activities))
		}
	}

	return stats
}

func (s *Scheduler) logSyncError(ctx context.Context, sub domain.Subscription, err error) {
	attrs := []any{
		"error", err,
		"subscriptionID", sub.ID,
		"chatID", sub.ChatID,
		"account", sub.AccountName,
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		s.log.WarnContext(ctx, "Account no longer exists", attrs...)
	case errors.Is(err, domain.ErrCorruptCheckpoint):
		s.log.ErrorContext(ctx, "Checkpoint is corrupt", attrs...)
	default:
		s.log.ErrorContext(ctx, "Failed to sync subscription", attrs...)
	}
}
