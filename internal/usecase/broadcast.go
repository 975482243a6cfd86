package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/ports"
)

// cancelledError is recorded for recipients skipped after cancellation.
const cancelledError = "broadcast cancelled"

// Sender delivers one message over the chosen gateway.
type Sender interface {
	Send(ctx context.Context, phoneRaw, message string, kind gateway.Kind) gateway.Result
}

// BroadcastRequest describes one fan-out.
type BroadcastRequest struct {
	ArticleID int64
	Message   string
	Selector  domain.RecipientSelector
	Gateway   gateway.Kind
}

// Delivery is reported once per recipient while a broadcast runs.
type Delivery struct {
	Index     int
	Total     int
	Recipient domain.Recipient
	Result    gateway.Result
}

// Progress observes a running broadcast; it is called from the broadcasting goroutine.
type Progress func(Delivery)

// BroadcasterDeps wires the driven adapters of the orchestrator.
type BroadcasterDeps struct {
	Recipients ports.RecipientStore
	Log        ports.DeliveryLog
	Sender     Sender
	Throttle   ports.Throttle
	Logger     *slog.Logger
}

// Broadcaster sends one message to every resolved recipient, strictly one after another.
type Broadcaster struct {
	recipients ports.RecipientStore
	log        ports.DeliveryLog
	sender     Sender
	throttle   ports.Throttle
	logger     *slog.Logger
	now        func() time.Time

	// turn holds one token while a broadcast is dispatching. Every caller
	// (jobs, schedules, the CLI) shares it, so sends never overlap.
	turn chan struct{}
}

// NewBroadcaster constructs the orchestrator. A nil throttle means the fixed 2s pause.
func NewBroadcaster(deps BroadcasterDeps) *Broadcaster {
	throttle := deps.Throttle
	if throttle == nil {
		throttle = FixedDelay{Delay: DefaultSendDelay}
	}
	return &Broadcaster{
		recipients: deps.Recipients,
		log:        deps.Log,
		sender:     deps.Sender,
		throttle:   throttle,
		logger:     deps.Logger,
		now:        time.Now,
		turn:       make(chan struct{}, 1),
	}
}

// Broadcast resolves the recipients and attempts every one of them.
//
// A failing recipient never stops the batch. Once ctx is cancelled the
// remaining recipients are not sent to but still get a failed record, so the
// result always accounts for every resolved recipient. Delivery log errors are
// returned after the batch. Broadcasts on the same Broadcaster run one at a
// time; a caller waiting for its turn gives up when ctx ends.
func (b *Broadcaster) Broadcast(ctx context.Context, req BroadcastRequest, progress Progress) (domain.BroadcastResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return domain.BroadcastResult{}, fmt.Errorf("broadcast: %w", domain.ErrEmptyContent)
	}
	if b.sender == nil {
		return domain.BroadcastResult{}, errors.New("broadcast: sender is not configured")
	}

	select {
	case b.turn <- struct{}{}:
		defer func() { <-b.turn }()
	case <-ctx.Done():
		return domain.BroadcastResult{}, fmt.Errorf("wait for running broadcast: %w", ctx.Err())
	}

	recipients, err := b.Resolve(ctx, req.Selector)
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("resolve recipients: %w", err)
	}

	b.info("broadcast started", "recipients", len(recipients), "gateway", req.Gateway, "article_id", req.ArticleID)

	var (
		result      domain.BroadcastResult
		persistErrs []error
		stopErr     error
	)
	// Records are written even after cancellation.
	persistCtx := context.WithoutCancel(ctx)

	for i, recipient := range recipients {
		if stopErr == nil {
			stopErr = ctx.Err()
		}

		var res gateway.Result
		if stopErr != nil {
			res = gateway.Failed(stopErr, cancelledError)
		} else {
			res = b.sender.Send(ctx, recipient.PhoneNumber, req.Message, req.Gateway)
		}

		record := domain.DeliveryRecord{
			RecipientID: recipient.ID,
			ArticleID:   req.ArticleID,
			Message:     req.Message,
			Status:      domain.StatusSent,
			SentAt:      b.now(),
		}
		if res.Success {
			result.Sent++
		} else {
			record.Status = domain.StatusFailed
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", recipient.Name, res.Error))
		}

		if b.log != nil {
			if err := b.log.AppendDelivery(persistCtx, record); err != nil {
				b.warn("delivery record not saved", "recipient_id", recipient.ID, "error", err)
				persistErrs = append(persistErrs, fmt.Errorf("recipient %d: %w", recipient.ID, err))
			}
		}

		if progress != nil {
			progress(Delivery{Index: i, Total: len(recipients), Recipient: recipient, Result: res})
		}

		if stopErr == nil {
			if err := b.throttle.Wait(ctx); err != nil {
				stopErr = err
			}
		}
	}

	b.info("broadcast finished", "sent", result.Sent, "failed", result.Failed, "cancelled", stopErr != nil)

	var errs []error
	if len(persistErrs) > 0 {
		errs = append(errs, fmt.Errorf("log deliveries: %w", errors.Join(persistErrs...)))
	}
	if stopErr != nil {
		errs = append(errs, fmt.Errorf("broadcast interrupted: %w", stopErr))
	}
	return result, errors.Join(errs...)
}

// Resolve applies selector. A single missing recipient is domain.ErrNotFound and an
// empty resolution is domain.ErrNoRecipients.
func (b *Broadcaster) Resolve(ctx context.Context, selector domain.RecipientSelector) ([]domain.Recipient, error) {
	if b.recipients == nil {
		return nil, errors.New("recipient store is not configured")
	}

	var (
		recipients []domain.Recipient
		err        error
	)
	switch selector.Mode {
	case domain.SelectAll, "":
		recipients, err = b.recipients.ActiveRecipients(ctx)
	case domain.SelectOne:
		if len(selector.IDs) != 1 {
			return nil, fmt.Errorf("single selector needs exactly one id, got %d", len(selector.IDs))
		}
		var recipient domain.Recipient
		recipient, err = b.recipients.RecipientByID(ctx, selector.IDs[0])
		if err == nil {
			recipients = []domain.Recipient{recipient}
		}
	case domain.SelectMany:
		if len(selector.IDs) == 0 {
			return nil, domain.ErrNoRecipients
		}
		recipients, err = b.recipients.RecipientsByIDs(ctx, selector.IDs)
	default:
		return nil, fmt.Errorf("unknown recipient selector %q", selector.Mode)
	}
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}
	return recipients, nil
}

func (b *Broadcaster) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Broadcaster) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
