package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"NewsBroadcaster/internal/domain"
)

const (
	// DefaultPollInterval is the pause between two reads of the modem.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultModemTimeout bounds how long one command may wait for a marker.
	DefaultModemTimeout = 10 * time.Second

	// TimeoutID is reported when the modem stayed silent for the whole timeout.
	TimeoutID = "sim800c_timeout"

	successMarker = "SUCCESS"
	errorMarker   = "ERROR"
	statusMarker  = "STATUS"
	okMarker      = "OK"
)

// Driver is the character-stream transport to the modem.
//
// ReadLine returns one line without its terminator, an empty string when no
// complete line arrived within timeout, or io.EOF when the stream has ended.
type Driver interface {
	Open(ctx context.Context) error
	WriteCommand(command string) error
	ReadLine(timeout time.Duration) (string, error)
	Close() error
}

// ModemConfig tunes the polling loop.
type ModemConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	// TimeoutIsFailure reports a silent modem as a failure instead of the
	// historical success with TimeoutID.
	TimeoutIsFailure bool
}

// ModemStatus is the answer to a STATUS probe.
type ModemStatus struct {
	Connected bool   `json:"connected"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Modem speaks the line protocol of the SIM800C bridge.
type Modem struct {
	driver Driver
	cfg    ModemConfig
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

var _ Gateway = (*Modem)(nil)

// NewModem wraps driver; zero config values fall back to the defaults.
func NewModem(driver Driver, cfg ModemConfig, logger *slog.Logger) *Modem {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultModemTimeout
	}
	return &Modem{driver: driver, cfg: cfg, logger: logger, now: time.Now}
}

func (m *Modem) Kind() Kind {
	return SIM800C
}

// commandSafe keeps a message inside one command field: the bridge splits on
// '|' and reads up to '\n'.
var commandSafe = strings.NewReplacer("\r", " ", "\n", " ", "|", "/")

// Send writes SEND|phone|message and waits for a SUCCESS or ERROR line.
func (m *Modem) Send(ctx context.Context, phone, message string) Result {
	if m.driver == nil {
		return Failed(domain.ErrUpstreamUnavailable, "modem driver is not configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.driver.Open(ctx); err != nil {
		return Failed(domain.ErrUpstreamUnavailable, fmt.Sprintf("open modem: %v", err))
	}
	defer m.close()

	message = commandSafe.Replace(message)
	if err := m.driver.WriteCommand(fmt.Sprintf("SEND|%s|%s\n", phone, message)); err != nil {
		return Failed(domain.ErrUpstreamUnavailable, fmt.Sprintf("write command: %v", err))
	}

	transcript, marker, err := m.await(ctx, successMarker, errorMarker)
	switch {
	case err != nil:
		return Failed(domain.ErrUpstreamUnavailable, err.Error())
	case marker == successMarker:
		return Sent(fmt.Sprintf("sim800c_%d", m.now().Unix()))
	case marker == errorMarker:
		return Failed(domain.ErrGatewayRejected, transcript)
	}

	m.warn("modem produced no marker before timeout", "phone", phone, "timeout", m.cfg.Timeout, "response", transcript)
	if m.cfg.TimeoutIsFailure {
		res := Failed(domain.ErrUpstreamUnavailable, "modem timeout without response")
		res.TimedOut = true
		return res
	}
	res := Sent(TimeoutID)
	res.TimedOut = true
	return res
}

// Status sends STATUS and reports whether the bridge answered OK.
func (m *Modem) Status(ctx context.Context) ModemStatus {
	if m.driver == nil {
		return ModemStatus{Error: "modem driver is not configured"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.driver.Open(ctx); err != nil {
		return ModemStatus{Error: fmt.Sprintf("open modem: %v", err)}
	}
	defer m.close()

	if err := m.driver.WriteCommand("STATUS\n"); err != nil {
		return ModemStatus{Error: fmt.Sprintf("write command: %v", err)}
	}

	transcript, _, err := m.await(ctx, statusMarker)
	if err != nil {
		return ModemStatus{Response: transcript, Error: err.Error()}
	}
	return ModemStatus{
		Connected: strings.Contains(transcript, okMarker),
		Response:  transcript,
	}
}

// await polls the driver until a line contains one of markers, the stream
// ends or the timeout elapses. An empty marker means no marker was seen.
func (m *Modem) await(ctx context.Context, markers ...string) (string, string, error) {
	var transcript strings.Builder
	deadline := m.now().Add(m.cfg.Timeout)

	for m.now().Before(deadline) {
		line, err := m.driver.ReadLine(m.cfg.PollInterval)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return strings.TrimSpace(transcript.String()), "", fmt.Errorf("read modem: %w", err)
		}

		if line != "" {
			transcript.WriteString(line)
			transcript.WriteByte('\n')
			m.debug("modem", "line", line)
			for _, marker := range markers {
				if strings.Contains(line, marker) {
					return strings.TrimSpace(transcript.String()), marker, nil
				}
			}
		}

		if err := sleep(ctx, m.cfg.PollInterval); err != nil {
			return strings.TrimSpace(transcript.String()), "", err
		}
	}

	return strings.TrimSpace(transcript.String()), "", nil
}

func (m *Modem) close() {
	if err := m.driver.Close(); err != nil {
		m.warn("close modem", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Modem) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Modem) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
