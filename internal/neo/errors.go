package neo

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers network failures, non-2xx statuses and
	// missing configuration.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMissingAPIKey is returned without contacting the upstream.
	ErrMissingAPIKey = fmt.Errorf("%w: NASA API key is not configured", ErrUpstreamUnavailable)

	// ErrMalformedPayload means a 2xx response whose body failed validation.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	// ErrRecordNotFound means the id is unknown upstream and in the fallback
	// dataset.
	ErrRecordNotFound = errors.New("record not found")
)

// fallbackReason maps an upstream error to a short metric label.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "missing_api_key"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}
