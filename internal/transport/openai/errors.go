package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lifecare-ai/prodsearch/internal/domain"
)

// apiStatus extracts the HTTP status code from a go-openai error, or 0.
func apiStatus(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

// apiDetail extracts a human-readable message from a go-openai error.
// Falls back to the raw body for request errors (Nebius puts the message
// in a "detail" field).
func apiDetail(err error) string {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if d := extractDetail(reqErr.Body); d != "" {
			return d
		}
		return string(reqErr.Body)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// errServerSide marks 5xx responses so the retry loop recognizes them
// after the status code has been flattened into the message.
var errServerSide = errors.New("provider server error")

// isRetryable reports whether a provider call should be retried:
// rate limits, server-side failures and timeouts, not malformed requests.
func isRetryable(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, errServerSide) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
