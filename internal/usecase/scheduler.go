package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/ports"
)

// Schedule is a recurring announcement.
type Schedule struct {
	Name    string
	Cron    string
	Message string
	Gateway gateway.Kind
	// Recipients limits the announcement to these ids; empty means every active recipient.
	Recipients []int64
}

// Selector returns the recipient rule of the schedule.
func (s Schedule) Selector() domain.RecipientSelector {
	switch len(s.Recipients) {
	case 0:
		return domain.AllRecipients()
	case 1:
		return domain.RecipientByID(s.Recipients[0])
	default:
		return domain.RecipientsByIDs(s.Recipients...)
	}
}

// Announcer is the part of the pipeline the scheduler drives.
type Announcer interface {
	Announce(ctx context.Context, message string, selector domain.RecipientSelector, kind gateway.Kind, progress Progress) (Report, error)
}

// Scheduler wires the cron driver with scheduled announcements.
type Scheduler struct {
	driver    ports.Scheduler
	announcer Announcer
	logger    *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler returns a helper to start/stop recurring announcements.
func NewScheduler(driver ports.Scheduler, announcer Announcer, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, announcer: announcer, logger: logger, ctx: context.Background()}
}

// Apply replaces every registered schedule. Invalid entries are skipped and
// reported together; the valid ones stay registered.
func (s *Scheduler) Apply(schedules []Schedule) error {
	if s.driver == nil || s.announcer == nil {
		return nil
	}

	s.driver.RemoveAll()

	var errs []error
	for _, sched := range schedules {
		if sched.Message == "" {
			errs = append(errs, fmt.Errorf("schedule %q: %w", sched.Name, domain.ErrEmptyContent))
			continue
		}
		sched := sched
		if err := s.driver.Add(sched.Cron, func(at time.Time) { s.run(sched, at) }); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", sched.Name, err))
			continue
		}
		s.info("schedule registered", "name", sched.Name, "cron", sched.Cron, "gateway", sched.Gateway)
	}
	return errors.Join(errs...)
}

// Start begins firing the registered schedules.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) run(sched Schedule, at time.Time) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	report, err := s.announcer.Announce(ctx, sched.Message, sched.Selector(), sched.Gateway, nil)
	if err != nil {
		s.warn("scheduled announcement failed", "name", sched.Name, "fired_at", at, "stage", report.Stage, "error", err)
		return
	}
	s.info("scheduled announcement sent", "name", sched.Name, "sent", report.Result.Sent, "failed", report.Result.Failed)
}

func (s *Scheduler) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
