package sms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
)

// DefaultIPROGEndpoint is the production messages endpoint.
const DefaultIPROGEndpoint = "https://www.iprogsms.com/api/v1/sms_messages"

// maxBody caps how much of a gateway response is read.
const maxBody = 1 << 20

// IPROGConfig configures the IPROG gateway.
type IPROGConfig struct {
	Endpoint string
	APIToken string
	Timeout  time.Duration
}

// IPROG sends messages through the token-authenticated IPROG HTTP API.
type IPROG struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

var _ gateway.Gateway = (*IPROG)(nil)

// NewIPROG builds the gateway; client may be nil.
func NewIPROG(cfg IPROGConfig, client *http.Client, logger *slog.Logger) *IPROG {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultIPROGEndpoint
	}
	if client == nil {
		client = newClient(cfg.Timeout)
	}
	return &IPROG{
		endpoint: cfg.Endpoint,
		token:    cfg.APIToken,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

func (g *IPROG) Kind() gateway.Kind {
	return gateway.IPROG
}

// Send posts the message. Success is any 2xx answer without an error field.
func (g *IPROG) Send(ctx context.Context, phone, message string) gateway.Result {
	if g.token == "" {
		return gateway.Failed(domain.ErrGatewayRejected, "iprog api token is not configured")
	}

	form := url.Values{}
	form.Set("api_token", g.token)
	form.Set("message", message)
	form.Set("phone_number", phone)

	status, body, err := postForm(ctx, g.client, g.endpoint, form)
	if err != nil {
		return gateway.Failed(domain.ErrUpstreamUnavailable, fmt.Sprintf("iprog: %v", err))
	}

	if status < 200 || status > 299 {
		debug(g.logger, "iprog rejected message", "status", status, "body", snippet(body))
		return gateway.Failed(domain.ErrGatewayRejected, fmt.Sprintf("iprog api error: status %d", status))
	}
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() && apiErr.Type != gjson.Null {
		return gateway.Failed(domain.ErrGatewayRejected, fmt.Sprintf("iprog api error: %s", apiErr.String()))
	}

	id := gjson.GetBytes(body, "data.id").String()
	if id == "" {
		id = fmt.Sprintf("iprog_%d", g.now().Unix())
	}
	return gateway.Sent(id)
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

func debug(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}
