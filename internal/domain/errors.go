package domain

import "errors"

var (
	// ErrUpstreamUnavailable covers text-generation and gateway network, timeout and status failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrLengthOverflow is informational: the translation was trimmed to fit one SMS.
	ErrLengthOverflow      = errors.New("translation exceeds sms length")
	ErrInvalidPhoneFormat  = errors.New("invalid phone format")
	ErrGatewayRejected     = errors.New("gateway rejected message")
	ErrNotFound            = errors.New("not found")
	ErrNoRecipients        = errors.New("no recipients resolved")
	ErrMessageTooLong      = errors.New("message exceeds sms limit")
	ErrEmptyContent        = errors.New("empty content")
)
