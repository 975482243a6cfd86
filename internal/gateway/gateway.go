// Package gateway routes SMS sends to one of the supported transports.
//
// Each transport implements Gateway. The Dispatcher strips the raw phone
// number down to digits, brings it into the canonical form the transport
// expects and refuses to touch the wire when that is impossible.
package gateway

import (
	"context"
	"fmt"
	"strings"
)

// Kind names a transport.
type Kind string

const (
	// IPROG is the token-authenticated HTTP API (gateway A).
	IPROG Kind = "iprog"
	// SIM800C is the GSM modem behind a serial line (gateway B).
	SIM800C Kind = "sim800c"
	// Semaphore is the regional keyed HTTP API (gateway C).
	Semaphore Kind = "semaphore"
)

// Kinds lists every supported transport.
func Kinds() []Kind {
	return []Kind{IPROG, SIM800C, Semaphore}
}

// KindList joins the transport names with sep.
func KindList(sep string) string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, sep)
}

// ParseKind accepts a transport name in any case, including the legacy aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iprog", "a":
		return IPROG, nil
	case "sim800c", "b", "arduino", "modem", "gsm":
		return SIM800C, nil
	case "semaphore", "c":
		return Semaphore, nil
	default:
		return "", fmt.Errorf("unknown gateway %q (want %s)", name, KindList("|"))
	}
}

// Normalize converts a digits-only number into the canonical form of the transport.
func (k Kind) Normalize(digits string) (string, error) {
	switch k {
	case IPROG, SIM800C:
		return NormalizeInternational(digits)
	case Semaphore:
		return NormalizeLocal(digits)
	default:
		return "", fmt.Errorf("unknown gateway %q", string(k))
	}
}

func (k Kind) String() string {
	return string(k)
}

// Result is the outcome of a single send attempt.
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
	// TimedOut is set when the modem never produced a marker.
	TimedOut bool `json:"timedOut,omitempty"`
	// Cause classifies failures for logs and metrics; callers only see Error.
	Cause error `json:"-"`
}

// Sent reports a successful send with the transport's message id.
func Sent(id string) Result {
	return Result{Success: true, ID: id}
}

// Failed reports a failed send. cause is one of the domain sentinels.
func Failed(cause error, detail string) Result {
	if detail == "" && cause != nil {
		detail = cause.Error()
	}
	return Result{Error: detail, Cause: cause}
}

// Gateway is a single SMS transport. phone is already in canonical form.
type Gateway interface {
	Kind() Kind
	Send(ctx context.Context, phone, message string) Result
}
