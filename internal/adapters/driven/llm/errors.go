// Package llm holds the pieces shared by the extraction backend adapters:
// failure classification at the HTTP boundary and client-side rate limiting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept in messages.
const maxErrorBody = 512

// ClassifyStatus turns a non-2xx response into a classified backend error.
// 408, 409, 425, 429 and 5xx are transient; every other status is permanent.
func ClassifyStatus(backend string, resp *http.Response) *domain.BackendError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	class := domain.FailurePermanent
	if IsTransientStatus(resp.StatusCode) {
		class = domain.FailureTransient
	}
	return &domain.BackendError{
		Backend:    backend,
		Class:      class,
		StatusCode: resp.StatusCode,
		RetryAfter: retryAfterSeconds(resp.Header.Get("Retry-After")),
		Err:        fmt.Errorf("%s error: %s", backend, msg),
	}
}

// IsTransientStatus reports whether an HTTP status is worth retrying elsewhere.
func IsTransientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusConflict,
		http.StatusTooEarly,
		http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// ClassifyTransport classifies an error from http.Client.Do.
// Cancellation by the caller is permanent. Timeouts, refused connections and
// resets are transient.
func ClassifyTransport(backend string, err error) *domain.BackendError {
	if errors.Is(err, context.Canceled) {
		return domain.NewPermanentError(backend, fmt.Errorf("send request: %w", err))
	}
	return domain.NewTransientError(backend, fmt.Errorf("send request: %w", err))
}

// DecodeError wraps a malformed 2xx response body as a transient failure.
func DecodeError(backend string, err error) *domain.BackendError {
	return domain.NewTransientError(backend, fmt.Errorf("decode response: %w", err))
}

func retryAfterSeconds(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
