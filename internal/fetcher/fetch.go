package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/sethvargo/go-retry"
)

// Fetch performs req, retrying on 429 (honoring Retry-After) and on transport
// errors (exponential backoff), sharing one attempt budget between both.
// Any other non-2xx status is returned at once as a Rejected result.
//
// The error return is reserved for a cancelled context or an unbuildable request.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	endpoint, err := req.Endpoint()
	if err != nil {
		return nil, err
	}

	backoff := retry.WithCappedDuration(f.maxDelay, retry.NewExponential(f.baseDelay))
	res := &Result{Outcome: Unavailable}

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		res.Attempts = attempt

		status, header, body, err := f.do(ctx, req, endpoint)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			res.Err = err
			if attempt == f.maxAttempts {
				break
			}
			wait, _ := backoff.Next()
			f.logger.Warn("Transient error, retrying",
				"reason", "transient", "url", endpoint, "wait", wait,
				"attempt", attempt, "max_attempts", f.maxAttempts, "error", err)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		res.StatusCode = status
		switch {
		case status >= 200 && status < 300:
			res.Outcome = OK
			res.Body = body
			res.Err = nil
			return res, nil

		case status == http.StatusTooManyRequests:
			wait := parseRetryAfter(header.Get("Retry-After"))
			res.Err = tterrors.NewRateLimitErrorWithRetry(fmt.Sprintf("rate limited by %s", hostOf(endpoint)), wait)
			if attempt < f.maxAttempts {
				f.logger.Warn("Rate limit hit, retrying",
					"reason", "rate_limit", "url", endpoint, "wait", wait,
					"attempt", attempt, "max_attempts", f.maxAttempts)
				if err := f.sleep(ctx, wait); err != nil {
					return nil, err
				}
			}

		default:
			res.Outcome = Rejected
			res.Err = tterrors.NewRejectedError(status, endpoint)
			f.logger.Debug("Request rejected", "url", endpoint, "status", status,
				"body", strings.TrimSpace(string(body)))
			return res, nil
		}
	}

	f.logger.Warn("Giving up on request", "url", endpoint,
		"attempts", res.Attempts, "error", res.Err)
	return res, nil
}

// do issues a single HTTP call. For non-2xx responses only the first 512 bytes
// of the body are kept.
func (f *Fetcher) do(ctx context.Context, r Request, endpoint string) (int, http.Header, []byte, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, 512)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// parseRetryAfter reads a Retry-After value in whole seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Host
}
