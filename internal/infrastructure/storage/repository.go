package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/ports"
)

// Dialect selects placeholder style and a few dialect-specific predicates.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Repository reads news and subscribers and appends to the SMS log.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var (
	_ ports.ArticleStore     = (*Repository)(nil)
	_ ports.RecipientStore   = (*Repository)(nil)
	_ ports.DeliveryLog      = (*Repository)(nil)
	_ ports.DeliveryReporter = (*Repository)(nil)
)

// NewRepository wires a sql.DB implementation for the given dialect.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == Postgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &Repository{db: db, dialect: dialect, builder: builder.RunWith(db)}
}

// ArticleByID returns the article or domain.ErrNotFound.
func (r *Repository) ArticleByID(ctx context.Context, id int64) (domain.Article, error) {
	row := r.builder.
		Select("id", "category", "title", "content", "created_at").
		From("news").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx)

	var (
		article  domain.Article
		category string
	)
	if err := row.Scan(&article.ID, &category, &article.Title, &article.Content, &article.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
		}
		return domain.Article{}, fmt.Errorf("query article: %w", err)
	}
	article.Category = domain.Category(category)

	return article, nil
}

// ActiveRecipients returns every subscriber flagged active.
func (r *Repository) ActiveRecipients(ctx context.Context) ([]domain.Recipient, error) {
	return r.queryRecipients(ctx, sq.Eq{"active": true})
}

// RecipientByID returns one subscriber regardless of its active flag.
func (r *Repository) RecipientByID(ctx context.Context, id int64) (domain.Recipient, error) {
	recipients, err := r.queryRecipients(ctx, sq.Eq{"id": id})
	if err != nil {
		return domain.Recipient{}, err
	}
	if len(recipients) == 0 {
		return domain.Recipient{}, fmt.Errorf("recipient %d: %w", id, domain.ErrNotFound)
	}
	return recipients[0], nil
}

// RecipientsByIDs returns the subscribers whose ids are listed. Unknown ids are skipped.
func (r *Repository) RecipientsByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if r.dialect == Postgres {
		return r.queryRecipients(ctx, sq.Expr("id = ANY(?)", pq.Array(ids)))
	}
	return r.queryRecipients(ctx, sq.Eq{"id": ids})
}

func (r *Repository) queryRecipients(ctx context.Context, pred sq.Sqlizer) ([]domain.Recipient, error) {
	rows, err := r.builder.
		Select("id", "name", "phone_number", "active").
		From("subscribers").
		Where(pred).
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}

	var result []domain.Recipient
	for rows.Next() {
		var rec domain.Recipient
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.PhoneNumber, &rec.Active); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		result = append(result, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// AppendDelivery inserts one SMS log row.
func (r *Repository) AppendDelivery(ctx context.Context, record domain.DeliveryRecord) error {
	sentAt := record.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	_, err := r.builder.
		Insert("sms_logs").
		Columns("subscriber_id", "news_id", "message", "status", "sent_at").
		Values(record.RecipientID, record.ArticleID, record.Message, string(record.Status), sentAt.UTC()).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert sms log: %w", err)
	}

	return nil
}

// DeliveryStats aggregates the whole SMS log.
func (r *Repository) DeliveryStats(ctx context.Context) (domain.DeliveryStats, error) {
	row := r.builder.
		Select(
			"COUNT(*)",
			"COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)",
			"COUNT(DISTINCT subscriber_id)",
			"COUNT(DISTINCT news_id)",
		).
		From("sms_logs").
		QueryRowContext(ctx)

	var stats domain.DeliveryStats
	if err := row.Scan(&stats.Total, &stats.Sent, &stats.Failed, &stats.UniqueRecipients, &stats.UniqueArticles); err != nil {
		return domain.DeliveryStats{}, fmt.Errorf("query delivery stats: %w", err)
	}

	return stats, nil
}
