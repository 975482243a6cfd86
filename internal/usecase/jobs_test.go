package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
)

func TestJobsSubmitAndWait(t *testing.T) {
	jobs := NewJobs(nil)
	defer jobs.Shutdown(context.Background())

	store := newMemoryStore(fiveRecipients()...)
	sender := &scriptedSender{fail: map[string]string{"09170000003": "modem busy"}}
	b := newTestBroadcaster(store, sender, &virtualThrottle{})

	id := jobs.Submit("announcement", func(ctx context.Context, progress Progress) (Report, error) {
		result, err := b.Broadcast(ctx, BroadcastRequest{
			Message:  "hello",
			Selector: domain.AllRecipients(),
			Gateway:  gateway.SIM800C,
		}, progress)
		return Report{Result: result, Stage: domain.StageLogged}, err
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := jobs.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if status.Running || status.DoneAt == nil {
		t.Fatalf("job still running: %+v", status)
	}
	if status.Total != 5 || status.Done != 5 || status.Sent != 4 || status.Failed != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Errors) != 1 || status.Errors[0] != "Carla: modem busy" {
		t.Fatalf("unexpected errors %q", status.Errors)
	}
	if status.Stage != domain.StageLogged || status.Err != "" {
		t.Fatalf("unexpected stage %+v", status)
	}

	if list := jobs.List(); len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestJobsProgressIsVisibleWhileRunning(t *testing.T) {
	jobs := NewJobs(nil)
	defer jobs.Shutdown(context.Background())

	reported := make(chan struct{})
	release := make(chan struct{})
	id := jobs.Submit("slow", func(ctx context.Context, progress Progress) (Report, error) {
		progress(Delivery{Index: 0, Total: 3, Recipient: domain.Recipient{Name: "Ana"}, Result: gateway.Sent("1")})
		close(reported)
		<-release
		return Report{Stage: domain.StageLogged}, nil
	})

	<-reported
	status, err := jobs.Status(id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Done != 1 || status.Total != 3 || status.Sent != 1 {
		t.Fatalf("unexpected running status %+v", status)
	}
	close(release)

	if _, err := jobs.Wait(context.Background(), id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestJobsCancel(t *testing.T) {
	jobs := NewJobs(nil)
	defer jobs.Shutdown(context.Background())

	started := make(chan struct{})
	id := jobs.Submit("cancel me", func(ctx context.Context, progress Progress) (Report, error) {
		close(started)
		<-ctx.Done()
		return Report{Stage: domain.StageAborted}, ctx.Err()
	})

	<-started
	if err := jobs.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	status, err := jobs.Wait(context.Background(), id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if status.Err != context.Canceled.Error() || status.Stage != domain.StageAborted {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestJobsUnknownID(t *testing.T) {
	jobs := NewJobs(nil)

	if _, err := jobs.Status("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := jobs.Cancel("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if _, err := jobs.Wait(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobsShutdownCancelsRunningJobs(t *testing.T) {
	jobs := NewJobs(nil)

	started := make(chan struct{})
	id := jobs.Submit("long", func(ctx context.Context, progress Progress) (Report, error) {
		close(started)
		<-ctx.Done()
		return Report{}, ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := jobs.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	status, _ := jobs.Status(id)
	if status.Running {
		t.Fatalf("job should have stopped")
	}
}

func TestJobsNeverSendInParallel(t *testing.T) {
	jobs := NewJobs(nil)
	defer jobs.Shutdown(context.Background())

	var inFlight, peak atomic.Int32
	sender := &scriptedSender{onSend: func(int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	}}
	b := newTestBroadcaster(newMemoryStore(fiveRecipients()...), sender, &virtualThrottle{})

	run := func(ctx context.Context, progress Progress) (Report, error) {
		result, err := b.Broadcast(ctx, BroadcastRequest{
			Message:  "Bagyo: walay klase",
			Selector: domain.AllRecipients(),
			Gateway:  gateway.IPROG,
		}, progress)
		return Report{Result: result, Stage: domain.StageLogged}, err
	}
	first := jobs.Submit("first", run)
	second := jobs.Submit("second", run)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range []string{first, second} {
		status, err := jobs.Wait(ctx, id)
		if err != nil {
			t.Fatalf("Wait(%s): %v", id, err)
		}
		if status.Sent != 5 {
			t.Fatalf("unexpected status %+v", status)
		}
	}
	if got := peak.Load(); got != 1 {
		t.Fatalf("expected one send in flight at a time, saw %d", got)
	}
	if sender.Calls() != 10 {
		t.Fatalf("expected 10 sends, got %d", sender.Calls())
	}
}

func TestQueuedBroadcastGivesUpOnCancel(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	sender := &scriptedSender{onSend: func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}}
	b := newTestBroadcaster(newMemoryStore(fiveRecipients()...), sender, &virtualThrottle{})
	req := BroadcastRequest{Message: "hello", Selector: domain.RecipientByID(1), Gateway: gateway.IPROG}

	done := make(chan error, 1)
	go func() {
		_, err := b.Broadcast(context.Background(), req, nil)
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Broadcast(ctx, req, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled while waiting, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first broadcast: %v", err)
	}
	if sender.Calls() != 1 {
		t.Fatalf("queued broadcast must not send, got %d calls", sender.Calls())
	}
}
