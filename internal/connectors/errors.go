package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound: удаленный API ответил 404.
var ErrNotFound = errors.New("upstream: not found")

// ThrottleError: 429 от удаленного API, RetryAfter из заголовка Retry-After.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// StatusError: любой другой неуспешный HTTP-ответ.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d %s", e.Path, e.Code, http.StatusText(e.Code))
}

// IsRetryable решает, имеет ли смысл повторять вызов.
// 404 и прочие 4xx не повторяем, отмену контекста: тоже.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var tErr *ThrottleError
	if errors.As(err, &tErr) {
		return true
	}
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr.Code >= 500
	}
	// Сеть, таймауты, битые соединения
	return true
}

// IsUpstreamFailure: считается ли ошибка отказом апстрима для Circuit Breaker.
// 404 и отмена клиентом апстрим не характеризуют.
func IsUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr.Code >= 500
	}
	return true
}
