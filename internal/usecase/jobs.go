package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsBroadcaster/internal/domain"
)

// maxFinishedJobs bounds how many completed jobs stay queryable.
const maxFinishedJobs = 100

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// JobFunc runs one broadcast and reports per-recipient progress.
type JobFunc func(ctx context.Context, progress Progress) (Report, error)

// JobStatus is a snapshot of a background broadcast.
type JobStatus struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Total     int          `json:"total"`
	Done      int          `json:"done"`
	Sent      int          `json:"sent"`
	Failed    int          `json:"failed"`
	Errors    []string     `json:"errors,omitempty"`
	Stage     domain.Stage `json:"stage,omitempty"`
	StartedAt time.Time    `json:"startedAt"`
	DoneAt    *time.Time   `json:"doneAt,omitempty"`
	Running   bool         `json:"running"`
	Err       string       `json:"error,omitempty"`
}

type job struct {
	status JobStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// Jobs runs broadcasts in the background so callers can poll and cancel them.
type Jobs struct {
	logger *slog.Logger
	root   context.Context
	stop   context.CancelFunc
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

func NewJobs(logger *slog.Logger) *Jobs {
	root, stop := context.WithCancel(context.Background())
	return &Jobs{
		logger: logger,
		root:   root,
		stop:   stop,
		now:    time.Now,
		jobs:   map[string]*job{},
	}
}

// Submit starts fn in its own goroutine and returns the job id.
func (j *Jobs) Submit(name string, fn JobFunc) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(j.root)

	jb := &job{
		status: JobStatus{ID: id, Name: name, StartedAt: j.now(), Running: true},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	j.mu.Lock()
	j.jobs[id] = jb
	j.pruneLocked()
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer close(jb.done)
		defer cancel()

		j.info("job started", "job_id", id, "name", name)
		report, err := fn(ctx, func(d Delivery) { j.progress(jb, d) })
		j.finish(jb, report, err)
	}()

	return id
}

// Status returns a snapshot of the job.
func (j *Jobs) Status(id string) (JobStatus, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	jb, ok := j.jobs[id]
	if !ok {
		return JobStatus{}, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	return snapshot(jb.status), nil
}

// List returns every known job, newest first.
func (j *Jobs) List() []JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]JobStatus, 0, len(j.jobs))
	for _, jb := range j.jobs {
		out = append(out, snapshot(jb.status))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.After(out[b].StartedAt) })
	return out
}

// Cancel stops a running job. Remaining recipients are logged as failed.
func (j *Jobs) Cancel(id string) error {
	j.mu.Lock()
	jb, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	jb.cancel()
	return nil
}

// Wait blocks until the job finished or ctx ends.
func (j *Jobs) Wait(ctx context.Context, id string) (JobStatus, error) {
	j.mu.Lock()
	jb, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return JobStatus{}, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}

	select {
	case <-jb.done:
		return j.Status(id)
	case <-ctx.Done():
		return JobStatus{}, ctx.Err()
	}
}

// Shutdown cancels every running job and waits for them until ctx ends.
func (j *Jobs) Shutdown(ctx context.Context) error {
	j.stop()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Jobs) progress(jb *job, d Delivery) {
	j.mu.Lock()
	defer j.mu.Unlock()

	jb.status.Total = d.Total
	jb.status.Done = d.Index + 1
	jb.status.Stage = domain.StageDispatching
	if d.Result.Success {
		jb.status.Sent++
		return
	}
	jb.status.Failed++
	jb.status.Errors = append(jb.status.Errors, fmt.Sprintf("%s: %s", d.Recipient.Name, d.Result.Error))
}

func (j *Jobs) finish(jb *job, report Report, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	doneAt := j.now()
	jb.status.Running = false
	jb.status.DoneAt = &doneAt
	jb.status.Stage = report.Stage
	if total := report.Result.Total(); total > 0 {
		jb.status.Total = total
		jb.status.Done = total
		jb.status.Sent = report.Result.Sent
		jb.status.Failed = report.Result.Failed
		jb.status.Errors = append([]string(nil), report.Result.Errors...)
	}
	if err != nil {
		jb.status.Err = err.Error()
	}

	if err != nil {
		j.warn("job finished with error", "job_id", jb.status.ID, "error", err)
		return
	}
	j.info("job finished", "job_id", jb.status.ID, "sent", jb.status.Sent, "failed", jb.status.Failed)
}

// pruneLocked drops the oldest finished jobs beyond maxFinishedJobs.
func (j *Jobs) pruneLocked() {
	var finished []*job
	for _, jb := range j.jobs {
		if !jb.status.Running {
			finished = append(finished, jb)
		}
	}
	if len(finished) <= maxFinishedJobs {
		return
	}
	sort.Slice(finished, func(a, b int) bool { return finished[a].status.StartedAt.Before(finished[b].status.StartedAt) })
	for _, jb := range finished[:len(finished)-maxFinishedJobs] {
		delete(j.jobs, jb.status.ID)
	}
}

func snapshot(status JobStatus) JobStatus {
	status.Errors = append([]string(nil), status.Errors...)
	if status.DoneAt != nil {
		doneAt := *status.DoneAt
		status.DoneAt = &doneAt
	}
	return status
}

func (j *Jobs) info(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Info(msg, args...)
	}
}

func (j *Jobs) warn(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Warn(msg, args...)
	}
}
