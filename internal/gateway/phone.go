package gateway

import (
	"fmt"
	"strings"

	"NewsBroadcaster/internal/domain"
)

// Digits drops every character of raw that is not an ASCII digit.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeInternational returns the 12-digit "63…" form used by IPROG and the modem.
func NormalizeInternational(digits string) (string, error) {
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "09"):
		digits = "63" + digits[1:]
	case len(digits) == 10:
		digits = "63" + digits
	}

	if len(digits) != 12 || !strings.HasPrefix(digits, "63") {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidPhoneFormat, digits)
	}
	return digits, nil
}

// NormalizeLocal returns the 11-digit "09…" form used by Semaphore.
func NormalizeLocal(digits string) (string, error) {
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "63"):
		digits = "0" + digits[2:]
	case len(digits) == 10:
		digits = "0" + digits
	}

	if len(digits) != 11 || !strings.HasPrefix(digits, "09") {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidPhoneFormat, digits)
	}
	return digits, nil
}
