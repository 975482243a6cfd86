package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
)

type memoryStore struct {
	mu         sync.Mutex
	articles   map[int64]domain.Article
	recipients []domain.Recipient
	records    []domain.DeliveryRecord
	appendErr  func(domain.DeliveryRecord) error
}

func newMemoryStore(recipients ...domain.Recipient) *memoryStore {
	return &memoryStore{articles: map[int64]domain.Article{}, recipients: recipients}
}

func fiveRecipients() []domain.Recipient {
	return []domain.Recipient{
		{ID: 1, Name: "Ana", PhoneNumber: "09170000001", Active: true},
		{ID: 2, Name: "Ben", PhoneNumber: "09170000002", Active: true},
		{ID: 3, Name: "Carla", PhoneNumber: "09170000003", Active: true},
		{ID: 4, Name: "Dodong", PhoneNumber: "09170000004", Active: true},
		{ID: 5, Name: "Ellen", PhoneNumber: "09170000005", Active: true},
	}
}

func (s *memoryStore) ArticleByID(ctx context.Context, id int64) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[id]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return article, nil
}

func (s *memoryStore) ActiveRecipients(ctx context.Context) ([]domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recipient
	for _, r := range s.recipients {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) RecipientByID(ctx context.Context, id int64) (domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recipients {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Recipient{}, fmt.Errorf("recipient %d: %w", id, domain.ErrNotFound)
}

func (s *memoryStore) RecipientsByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Recipient
	for _, r := range s.recipients {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) AppendDelivery(ctx context.Context, record domain.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		if err := s.appendErr(record); err != nil {
			return err
		}
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memoryStore) Records() []domain.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeliveryRecord(nil), s.records...)
}

type scriptedSender struct {
	mu     sync.Mutex
	fail   map[string]string
	onSend func(call int)
	phones []string
}

func (s *scriptedSender) Send(ctx context.Context, phoneRaw, message string, kind gateway.Kind) gateway.Result {
	s.mu.Lock()
	s.phones = append(s.phones, phoneRaw)
	call := len(s.phones)
	hook := s.onSend
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if reason, ok := s.fail[phoneRaw]; ok {
		return gateway.Failed(domain.ErrGatewayRejected, reason)
	}
	return gateway.Sent(fmt.Sprintf("msg-%d", call))
}

func (s *scriptedSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.phones)
}

// virtualThrottle accounts for the pause without sleeping.
type virtualThrottle struct {
	mu     sync.Mutex
	delay  time.Duration
	waits  int
	paused time.Duration
}

func (v *virtualThrottle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.waits++
	v.paused += v.delay
	return nil
}

type fakeDistiller struct {
	summary      string
	translation  domain.Translation
	reference    domain.Translation
	summaryErr   error
	translateErr error
	referenceErr error

	summarized []string
}

func (f *fakeDistiller) Summarize(ctx context.Context, content string) (string, error) {
	f.summarized = append(f.summarized, content)
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return f.summary, nil
}

func (f *fakeDistiller) Translate(ctx context.Context, summary string) (domain.Translation, error) {
	if f.translateErr != nil {
		return domain.Translation{}, f.translateErr
	}
	return f.translation, nil
}

func (f *fakeDistiller) TranslateReference(ctx context.Context, summary string) (domain.Translation, error) {
	if f.referenceErr != nil {
		return domain.Translation{}, f.referenceErr
	}
	return f.reference, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []string
	err     error
}

func (n *recordingNotifier) PublishReport(ctx context.Context, report string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return n.err
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []domain.Stage
}

func (s *stageRecorder) ObserveStage(stage domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stage)
}

var errUnreachable = errors.New("connection refused")
