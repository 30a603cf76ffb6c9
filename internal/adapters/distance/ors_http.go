package distance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts   = 4
	maxRetryDelay = 10 * time.Second
)

// statusError is a non-2xx answer from OpenRouteService.
type statusError struct {
	Code int
	Body string
	// RetryAfter is the server's requested delay, zero when it sent none.
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ORS status %d: %s", e.Code, e.Body)
}

// temporary reports whether the same request may succeed later:
// rate limiting and gateway or server overload.
func (e *statusError) temporary() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// call sends one ORS request, rebuilding it on every attempt so that the
// body can be replayed. query may be nil; payload is JSON or nil.
func (o *ORSDistanceProvider) call(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Response, error) {
	endpoint := o.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := o.backoff
	for attempt := 1; ; attempt++ {
		resp, err := o.send(ctx, method, endpoint, payload)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		wait, retry := retryDelay(err, delay)
		if !retry || attempt == maxAttempts {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		o.log.Debug("retrying ORS request",
			zap.String("path", path), zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func (o *ORSDistanceProvider) send(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return nil, &statusError{
		Code:       resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// retryDelay decides whether err is worth another attempt and how long to
// wait first. A Retry-After header wins over the backoff, up to maxRetryDelay.
func retryDelay(err error, backoff time.Duration) (time.Duration, bool) {
	var se *statusError
	if errors.As(err, &se) {
		if !se.temporary() {
			return 0, false
		}
		if se.RetryAfter > backoff {
			return min(se.RetryAfter, maxRetryDelay), true
		}
		return backoff, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return backoff, true
	}
	return 0, false
}

// parseRetryAfter reads the delay-seconds form; HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
