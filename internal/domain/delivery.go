package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryStatus is the outcome of one send attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// DeliveryRecord is an immutable log entry for one send attempt to one recipient.
type DeliveryRecord struct {
	RecipientID int64
	ArticleID   int64
	Message     string
	Status      DeliveryStatus
	SentAt      time.Time
}

// maxErrorLines caps how many failure lines ErrorSummary shows.
const maxErrorLines = 5

// BroadcastResult aggregates the outcome of one broadcast invocation.
type BroadcastResult struct {
	Sent   int
	Failed int
	Errors []string
}

// Total is the number of recipients that were attempted.
func (r BroadcastResult) Total() int {
	return r.Sent + r.Failed
}

// ErrorSummary renders the first failures followed by a "... and N more" suffix.
func (r BroadcastResult) ErrorSummary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	shown := r.Errors
	if len(shown) > maxErrorLines {
		shown = shown[:maxErrorLines]
	}
	summary := strings.Join(shown, "\n")
	if extra := len(r.Errors) - len(shown); extra > 0 {
		summary += fmt.Sprintf("\n... and %d more failures", extra)
	}
	return summary
}

// DeliveryStats summarises the delivery log.
type DeliveryStats struct {
	Total            int
	Sent             int
	Failed           int
	UniqueRecipients int
	UniqueArticles   int
}

// SuccessRate returns the share of sent messages in percent, rounded to one decimal.
func (s DeliveryStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	rate := float64(s.Sent) / float64(s.Total) * 100
	return float64(int64(rate*10+0.5)) / 10
}

// StatusReport is the result of a best-effort delivery status lookup.
type StatusReport struct {
	MessageID   string
	Group       string
	Description string
	To          string
	From        string
	Text        string
	SentAt      string
	DoneAt      string
}

// Delivered reports whether the carrier confirmed delivery.
func (s StatusReport) Delivered() bool {
	return strings.EqualFold(s.Group, "DELIVERED")
}
