package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsBroadcaster/internal/ports"
)

// CronScheduler runs jobs on cron expressions. Seconds are optional and
// descriptors such as "@daily" or "@every 1h" are accepted.
type CronScheduler struct {
	parser cron.Parser
	c      *cron.Cron

	mu      sync.Mutex
	entries []cron.EntryID
	running bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating expressions in loc (UTC when nil).
func NewCronScheduler(loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		parser: parser,
		c:      cron.New(cron.WithParser(parser), cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Validate reports whether spec parses.
func (s *CronScheduler) Validate(spec string) error {
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return nil
}

// Add registers job under spec. Jobs added while running start immediately.
func (s *CronScheduler) Add(spec string, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	id, err := s.c.AddFunc(spec, func() { job(time.Now()) })
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", spec, err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, id)
	s.mu.Unlock()
	return nil
}

// RemoveAll drops every registered job.
func (s *CronScheduler) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.c.Remove(id)
	}
	s.entries = nil
}

// Start begins firing jobs until Stop is called or ctx ends.
func (s *CronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.c.Start()
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()
	return nil
}

// Stop halts the scheduler and waits for running jobs until ctx ends.
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries returns the number of registered jobs.
func (s *CronScheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
