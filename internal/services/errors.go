package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTransient     = errors.New("transient failure")
	ErrUnavailable   = errors.New("service unavailable")
	ErrNotFound      = errors.New("not found")
)

// Error codes recognized by the retry resolver and health tracker.
const (
	CodeConnectionReset    = "connection_reset"
	CodeConnectionRefused  = "connection_refused"
	CodeDNSFailure         = "dns_failure"
	CodeTimeout            = "timeout"
	CodeRateLimited        = "rate_limited"
	CodeTemporaryFailure   = "temporary_failure"
	CodeServiceUnavailable = "service_unavailable"
	CodeQuotaExceeded      = "quota_exceeded"
	CodeModelUnavailable   = "model_unavailable"
	CodeContentFiltered    = "content_filtered"
	CodeInvalidRequest     = "invalid_request"
	CodeUnknown            = "unknown"
)

// Error is the normalized failure produced by media service adapters.
type Error struct {
	Service    string
	Code       string
	Message    string
	Status     int
	Retryable  bool
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	service := strings.TrimSpace(e.Service)
	if service == "" {
		service = "service"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (http %d): %s", service, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", service, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs a normalized service error with an explicit code.
func NewError(service, code, message string) *Error {
	return &Error{Service: service, Code: code, Message: strings.TrimSpace(message), Retryable: retryableCode(code)}
}

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Normalize converts an arbitrary failure into a *Error attributed to the
// named service. Already-normalized errors keep their classification but gain
// the service name when missing.
func Normalize(service string, err error) *Error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		if strings.TrimSpace(svcErr.Service) == "" {
			svcErr.Service = service
		}
		return svcErr
	}

	normalized := &Error{Service: service, Code: CodeUnknown, Message: err.Error(), Cause: err}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		normalized.Code = CodeTimeout
	case errors.Is(err, ErrUnavailable):
		normalized.Code = CodeServiceUnavailable
	case errors.Is(err, ErrTransient):
		normalized.Code = CodeTemporaryFailure
	default:
		normalized.Code = classifyNetError(err)
	}

	normalized.Retryable = retryableCode(normalized.Code)
	return normalized
}

// NormalizeHTTP maps an HTTP status into a normalized service error. A
// Retry-After value of zero means the server did not suggest a delay.
func NormalizeHTTP(service string, status int, body string, retryAfter time.Duration) *Error {
	code := CodeUnknown
	switch {
	case status == http.StatusTooManyRequests:
		code = CodeRateLimited
	case status == http.StatusServiceUnavailable:
		code = CodeServiceUnavailable
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		code = CodeTimeout
	case status == http.StatusPaymentRequired:
		code = CodeQuotaExceeded
	case status == http.StatusUnprocessableEntity:
		code = CodeContentFiltered
	case status == http.StatusNotFound:
		code = CodeModelUnavailable
	case status >= http.StatusInternalServerError:
		code = CodeTemporaryFailure
	case status >= http.StatusBadRequest:
		code = CodeInvalidRequest
	}

	message := strings.TrimSpace(body)
	const limit = 200
	if len(message) > limit {
		message = message[:limit] + "..."
	}

	return &Error{
		Service:    service,
		Code:       code,
		Message:    message,
		Status:     status,
		Retryable:  retryableCode(code) || status >= http.StatusInternalServerError,
		RetryAfter: retryAfter,
	}
}

func classifyNetError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CodeDNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		msg := opErr.Error()
		switch {
		case strings.Contains(msg, "connection refused"):
			return CodeConnectionRefused
		case strings.Contains(msg, "connection reset"):
			return CodeConnectionReset
		}
		if opErr.Timeout() {
			return CodeTimeout
		}
		return CodeTemporaryFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return CodeTimeout
	}

	return CodeUnknown
}

func retryableCode(code string) bool {
	switch code {
	case CodeConnectionReset, CodeConnectionRefused, CodeDNSFailure,
		CodeTimeout, CodeRateLimited, CodeTemporaryFailure, CodeServiceUnavailable:
		return true
	}
	return false
}

// Unavailable reports whether the error explicitly signals that the service
// itself is down, as opposed to an individual request failing.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code == CodeServiceUnavailable
	}
	return false
}
