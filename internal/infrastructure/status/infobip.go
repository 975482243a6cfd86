// Package status looks up carrier delivery reports for diagnostics.
package status

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/ports"
)

// Infobip queries the Infobip SMS logs API.
type Infobip struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ports.StatusLookup = (*Infobip)(nil)

func NewInfobip(baseURL, apiKey string, client *http.Client) *Infobip {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Infobip{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

// Lookup returns the log entry of one message or domain.ErrNotFound.
func (c *Infobip) Lookup(ctx context.Context, messageID string) (domain.StatusReport, error) {
	if strings.TrimSpace(messageID) == "" {
		return domain.StatusReport{}, fmt.Errorf("message id is empty")
	}

	reports, err := c.logs(ctx, url.Values{"messageId": {messageID}})
	if err != nil {
		return domain.StatusReport{}, err
	}
	if len(reports) == 0 {
		return domain.StatusReport{}, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	return reports[0], nil
}

// Recent returns the latest log entries, newest first.
func (c *Infobip) Recent(ctx context.Context, limit int) ([]domain.StatusReport, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.logs(ctx, url.Values{"limit": {strconv.Itoa(limit)}})
}

func (c *Infobip) logs(ctx context.Context, query url.Values) ([]domain.StatusReport, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, fmt.Errorf("infobip lookup misconfigured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sms/1/logs?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "App "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: infobip status %s", domain.ErrUpstreamUnavailable, resp.Status)
	}

	var reports []domain.StatusReport
	gjson.GetBytes(body, "results").ForEach(func(_, msg gjson.Result) bool {
		reports = append(reports, domain.StatusReport{
			MessageID:   msg.Get("messageId").String(),
			Group:       msg.Get("status.groupName").String(),
			Description: msg.Get("status.description").String(),
			To:          msg.Get("to").String(),
			From:        msg.Get("from").String(),
			Text:        msg.Get("text").String(),
			SentAt:      msg.Get("sentAt").String(),
			DoneAt:      msg.Get("doneAt").String(),
		})
		return true
	})
	return reports, nil
}
