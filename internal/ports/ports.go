package ports

import (
	"context"
	"time"

	"NewsBroadcaster/internal/domain"
)

// ArticleStore reads news articles owned by the content backend.
type ArticleStore interface {
	ArticleByID(ctx context.Context, id int64) (domain.Article, error)
}

// RecipientStore reads SMS subscribers; it never writes.
type RecipientStore interface {
	ActiveRecipients(ctx context.Context) ([]domain.Recipient, error)
	RecipientByID(ctx context.Context, id int64) (domain.Recipient, error)
	RecipientsByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error)
}

// DeliveryLog is the insert-only store of delivery records.
type DeliveryLog interface {
	AppendDelivery(ctx context.Context, record domain.DeliveryRecord) error
}

// DeliveryReporter aggregates the delivery log for dashboards and the CLI.
type DeliveryReporter interface {
	DeliveryStats(ctx context.Context) (domain.DeliveryStats, error)
}

// TextGenerator is the chat-completion collaborator used for summaries and translations.
type TextGenerator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Notifier streams broadcast reports to operators (Telegram or other channels).
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// StatusLookup queries an upstream carrier for the delivery status of a message id.
type StatusLookup interface {
	Lookup(ctx context.Context, messageID string) (domain.StatusReport, error)
	Recent(ctx context.Context, limit int) ([]domain.StatusReport, error)
}

// Throttle paces consecutive sends.
type Throttle interface {
	Wait(ctx context.Context) error
}

// DeliveryObserver receives one observation per dispatch attempt.
type DeliveryObserver interface {
	ObserveDelivery(gateway string, status domain.DeliveryStatus, took time.Duration)
}

// StageObserver receives the final stage of every message lifecycle.
type StageObserver interface {
	ObserveStage(stage domain.Stage)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Add(spec string, job func(time.Time)) error
	RemoveAll()
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
