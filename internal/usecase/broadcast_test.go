package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
)

func newTestBroadcaster(store *memoryStore, sender Sender, throttle *virtualThrottle) *Broadcaster {
	return NewBroadcaster(BroadcasterDeps{
		Recipients: store,
		Log:        store,
		Sender:     sender,
		Throttle:   throttle,
	})
}

func TestBroadcastAllSucceedPausesAfterEverySend(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	sender := &scriptedSender{}
	throttle := &virtualThrottle{delay: DefaultSendDelay}

	result, err := newTestBroadcaster(store, sender, throttle).Broadcast(context.Background(), BroadcastRequest{
		ArticleID: 7,
		Message:   "Mag-andam sa baha.",
		Selector:  domain.AllRecipients(),
		Gateway:   gateway.IPROG,
	}, nil)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Sent != 5 || result.Failed != 0 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if throttle.waits != 5 || throttle.paused < 10*time.Second {
		t.Fatalf("expected 5 pauses totalling 10s, got %d (%v)", throttle.waits, throttle.paused)
	}

	records := store.Records()
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.RecipientID != int64(i+1) || rec.ArticleID != 7 || rec.Status != domain.StatusSent || rec.SentAt.IsZero() {
			t.Fatalf("unexpected record %d: %+v", i, rec)
		}
	}
}

func TestBroadcastWallClockWithFixedDelay(t *testing.T) {
	if testing.Short() {
		t.Skip("takes 10 seconds")
	}

	store := newMemoryStore(fiveRecipients()...)
	b := NewBroadcaster(BroadcasterDeps{Recipients: store, Log: store, Sender: &scriptedSender{}})

	started := time.Now()
	result, err := b.Broadcast(context.Background(), BroadcastRequest{
		Message:  "Walay klase bukas.",
		Selector: domain.AllRecipients(),
		Gateway:  gateway.Semaphore,
	}, nil)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Sent != 5 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if took := time.Since(started); took < 10*time.Second {
		t.Fatalf("expected at least 10s, took %v", took)
	}
}

func TestBroadcastPartialFailure(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	sender := &scriptedSender{fail: map[string]string{
		"09170000002": "semaphore api error: status 500",
		"09170000004": "invalid phone format: 0917",
	}}

	result, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		ArticleID: 3,
		Message:   "hello",
		Selector:  domain.AllRecipients(),
		Gateway:   gateway.Semaphore,
	}, nil)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Sent != 3 || result.Failed != 2 {
		t.Fatalf("expected 3/2, got %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %q", result.Errors)
	}
	if result.Errors[0] != "Ben: semaphore api error: status 500" || result.Errors[1] != "Dodong: invalid phone format: 0917" {
		t.Fatalf("unexpected error lines %q", result.Errors)
	}

	records := store.Records()
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if records[1].Status != domain.StatusFailed || records[3].Status != domain.StatusFailed || records[4].Status != domain.StatusSent {
		t.Fatalf("unexpected statuses %+v", records)
	}
}

func TestBroadcastSingleRecipientIgnoresActiveFlag(t *testing.T) {
	recipients := fiveRecipients()
	recipients[2].Active = false
	store := newMemoryStore(recipients...)
	sender := &scriptedSender{}

	result, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.RecipientByID(3),
		Gateway:  gateway.IPROG,
	}, nil)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Sent != 1 || sender.phones[0] != "09170000003" {
		t.Fatalf("unexpected result %+v phones=%q", result, sender.phones)
	}
}

func TestBroadcastSelectedRecipients(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	sender := &scriptedSender{}

	result, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.RecipientsByIDs(2, 5),
		Gateway:  gateway.IPROG,
	}, nil)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Total() != 2 || len(store.Records()) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestBroadcastMissingRecipientAbortsBeforeDispatch(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	sender := &scriptedSender{}

	_, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.RecipientByID(42),
		Gateway:  gateway.IPROG,
	}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if sender.Calls() != 0 || len(store.Records()) != 0 {
		t.Fatalf("nothing may be sent or logged")
	}
}

func TestBroadcastNoRecipients(t *testing.T) {
	recipients := fiveRecipients()
	for i := range recipients {
		recipients[i].Active = false
	}
	store := newMemoryStore(recipients...)

	_, err := newTestBroadcaster(store, &scriptedSender{}, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.AllRecipients(),
		Gateway:  gateway.IPROG,
	}, nil)
	if !errors.Is(err, domain.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}

	_, err = newTestBroadcaster(store, &scriptedSender{}, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.RecipientsByIDs(),
		Gateway:  gateway.IPROG,
	}, nil)
	if !errors.Is(err, domain.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients for empty id list, got %v", err)
	}
}

func TestBroadcastRejectsEmptyMessage(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	_, err := newTestBroadcaster(store, &scriptedSender{}, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "   ",
		Selector: domain.AllRecipients(),
		Gateway:  gateway.IPROG,
	}, nil)
	if !errors.Is(err, domain.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestBroadcastCancellationAccountsForEveryRecipient(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &scriptedSender{onSend: func(call int) {
		if call == 2 {
			cancel()
		}
	}}

	result, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(ctx, BroadcastRequest{
		Message:  "hello",
		Selector: domain.AllRecipients(),
		Gateway:  gateway.IPROG,
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sender.Calls() != 2 {
		t.Fatalf("expected 2 sends over the wire, got %d", sender.Calls())
	}
	if result.Sent != 2 || result.Failed != 3 || result.Total() != 5 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(store.Records()) != 5 {
		t.Fatalf("expected 5 records, got %d", len(store.Records()))
	}
	if !strings.HasSuffix(result.Errors[0], cancelledError) {
		t.Fatalf("unexpected error line %q", result.Errors[0])
	}
}

func TestBroadcastCollectsLogErrors(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	store.appendErr = func(rec domain.DeliveryRecord) error {
		if rec.RecipientID == 3 {
			return errors.New("disk full")
		}
		return nil
	}
	sender := &scriptedSender{}

	result, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.AllRecipients(),
		Gateway:  gateway.IPROG,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected log error, got %v", err)
	}
	if sender.Calls() != 5 || result.Sent != 5 {
		t.Fatalf("every recipient must still be attempted, got %d sends", sender.Calls())
	}
}

func TestBroadcastReportsProgress(t *testing.T) {
	store := newMemoryStore(fiveRecipients()...)
	sender := &scriptedSender{fail: map[string]string{"09170000005": "down"}}

	var seen []Delivery
	_, err := newTestBroadcaster(store, sender, &virtualThrottle{}).Broadcast(context.Background(), BroadcastRequest{
		Message:  "hello",
		Selector: domain.AllRecipients(),
		Gateway:  gateway.IPROG,
	}, func(d Delivery) { seen = append(seen, d) })
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 progress events, got %d", len(seen))
	}
	last := seen[4]
	if last.Index != 4 || last.Total != 5 || last.Result.Success || last.Recipient.Name != "Ellen" {
		t.Fatalf("unexpected last event %+v", last)
	}
}

func TestTokenBucketAndFixedDelay(t *testing.T) {
	bucket := NewTokenBucket(1000, 3)
	for i := 0; i < 3; i++ {
		if err := bucket.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (FixedDelay{Delay: time.Hour}).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	started := time.Now()
	if err := (FixedDelay{Delay: 20 * time.Millisecond}).Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(started) < 20*time.Millisecond {
		t.Fatalf("fixed delay returned early")
	}
}
