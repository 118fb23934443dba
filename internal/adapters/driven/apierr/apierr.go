// Package apierr classifies HTTP provider failures for the LLM and embedding adapters.
//
// Rate limits (429), request timeouts (408), server errors (5xx), network
// timeouts and connection resets become domain.TransientError so the resilient
// decorator can retry them. Everything else is returned as a plain error.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// maxBodyInError bounds the response body quoted in error messages.
const maxBodyInError = 512

// Status classifies a non-2xx response. body is the already-read response body.
func Status(op string, resp *http.Response, body []byte) error {
	err := fmt.Errorf("%s: API returned status %d: %s", op, resp.StatusCode, truncate(body))
	if Retryable(resp.StatusCode) {
		return domain.NewTransientError(op, err, retryAfter(resp.Header.Get("Retry-After")))
	}
	return err
}

// Request classifies a failure to send a request or read its response.
func Request(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isTransport(err) {
		return domain.NewTransientError(op, err, 0)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Retryable reports whether an HTTP status is worth retrying.
func Retryable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryAfter parses a Retry-After header in seconds or HTTP-date form.
func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyInError {
		return s[:maxBodyInError] + "..."
	}
	return s
}
