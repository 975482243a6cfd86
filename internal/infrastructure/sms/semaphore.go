package sms

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
)

const (
	DefaultSemaphoreEndpoint         = "https://semaphore.co/api/v4/messages"
	DefaultSemaphorePriorityEndpoint = "https://semaphore.co/api/v4/priority"
)

// SemaphoreConfig configures the Semaphore gateway.
type SemaphoreConfig struct {
	Endpoint         string
	PriorityEndpoint string
	APIKey           string
	SenderName       string
	// Priority routes every message through the priority queue.
	Priority bool
	Timeout  time.Duration
}

// Semaphore sends messages through the Semaphore HTTP API.
type Semaphore struct {
	endpoint string
	apiKey   string
	sender   string
	client   *http.Client
	logger   *slog.Logger
}

var _ gateway.Gateway = (*Semaphore)(nil)

// NewSemaphore builds the gateway; client may be nil.
func NewSemaphore(cfg SemaphoreConfig, client *http.Client, logger *slog.Logger) *Semaphore {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultSemaphoreEndpoint
	}
	if cfg.Priority {
		endpoint = cfg.PriorityEndpoint
		if endpoint == "" {
			endpoint = DefaultSemaphorePriorityEndpoint
		}
	}
	if client == nil {
		client = newClient(cfg.Timeout)
	}
	return &Semaphore{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		sender:   cfg.SenderName,
		client:   client,
		logger:   logger,
	}
}

func (g *Semaphore) Kind() gateway.Kind {
	return gateway.Semaphore
}

// Send posts the message. Success is HTTP 200 with a message_id in the first element.
func (g *Semaphore) Send(ctx context.Context, phone, message string) gateway.Result {
	if g.apiKey == "" {
		return gateway.Failed(domain.ErrGatewayRejected, "semaphore api key is not configured")
	}

	form := url.Values{}
	form.Set("apikey", g.apiKey)
	form.Set("number", phone)
	form.Set("message", message)
	form.Set("sendername", g.sender)

	status, body, err := postForm(ctx, g.client, g.endpoint, form)
	if err != nil {
		return gateway.Failed(domain.ErrUpstreamUnavailable, fmt.Sprintf("semaphore: %v", err))
	}

	if status != http.StatusOK {
		debug(g.logger, "semaphore rejected message", "status", status, "body", snippet(body))
		return gateway.Failed(domain.ErrGatewayRejected, fmt.Sprintf("semaphore api error: status %d", status))
	}

	id := gjson.GetBytes(body, "0.message_id")
	if !id.Exists() || id.String() == "" {
		debug(g.logger, "semaphore response without message id", "body", snippet(body))
		return gateway.Failed(domain.ErrGatewayRejected, "semaphore api error: missing message id")
	}
	return gateway.Sent(id.String())
}
