package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

// ErrRequestCancelled is the distinguished error a Requester returns when
// the supplied context is cancelled mid-flight.
var ErrRequestCancelled = errors.New("scenario engine: request cancelled")

// ResolvedRequest is a request with every template already substituted.
type ResolvedRequest struct {
	Method  domain.Method
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    string
	HasBody bool
}

// Response is the Requester's normalized result: integer status,
// case-insensitive header lookup (original names kept for reporting),
// and a body decoded as JSON when the content type says so, else raw text.
type Response struct {
	Status     int
	Headers    http.Header
	Body       any
	RawBody    string
	IsJSONBody bool
}

// HeaderValue looks up a header case-insensitively, returning Absent if
// not present.
func (r Response) HeaderValue(name string) any {
	values := r.Headers.Values(name)
	if len(values) == 0 {
		return Absent
	}
	return values[0]
}

// BodyText stringifies the body for substring assertions: the raw text if
// it was already text, else the body's JSON form.
func (r Response) BodyText() string {
	if !r.IsJSONBody {
		return r.RawBody
	}
	encoded, err := json.Marshal(r.Body)
	if err != nil {
		return r.RawBody
	}
	return string(encoded)
}

// Requester performs one HTTP request against an already-resolved request,
// honoring ctx cancellation so an abort propagates into the in-flight
// network operation immediately.
type Requester interface {
	Perform(ctx context.Context, req ResolvedRequest) (Response, error)
}

// HTTPRequester is the default Requester, backed by a net/http.Client.
// Timeout and user-agent defaults follow the host's httputil.ClientConfig
// conventions (a configured timeout, else a fallback).
type HTTPRequester struct {
	client    *http.Client
	userAgent string
}

// NewHTTPRequester builds an HTTPRequester. A zero timeout falls back to
// 30s, matching the host's httputil default.
func NewHTTPRequester(timeout time.Duration, userAgent string) *HTTPRequester {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRequester{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Perform implements Requester.
func (h *HTTPRequester) Perform(ctx context.Context, req ResolvedRequest) (Response, error) {
	var bodyReader io.Reader
	if req.HasBody {
		bodyReader = bytes.NewBufferString(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bodyReader)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if h.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for name, value := range req.Query {
			q.Set(name, value)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ErrRequestCancelled
		}
		return Response{}, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ErrRequestCancelled
		}
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	out := Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		RawBody: string(raw),
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json") && len(raw) > 0 {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			out.Body = decoded
			out.IsJSONBody = true
		} else {
			out.Body = string(raw)
		}
	} else {
		out.Body = string(raw)
	}
	return out, nil
}

// RateLimitedRequester decorates a Requester with a token-bucket cap on
// outbound request rate, adapted from the host's ratelimit.RateLimiter.
// Not invoked by the scheduler directly; an optional decorator wired at
// the Façade's construction site.
type RateLimitedRequester struct {
	inner   Requester
	limiter *rate.Limiter
}

// NewRateLimitedRequester wraps inner with a limiter allowing
// requestsPerSecond steady-state and burst simultaneous requests.
func NewRateLimitedRequester(inner Requester, requestsPerSecond float64, burst int) *RateLimitedRequester {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 100
	}
	if burst <= 0 {
		burst = int(requestsPerSecond * 2)
	}
	return &RateLimitedRequester{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Perform waits for rate-limiter admission, then delegates to the inner
// Requester. A cancelled ctx while waiting surfaces as ErrRequestCancelled.
func (r *RateLimitedRequester) Perform(ctx context.Context, req ResolvedRequest) (Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Response{}, ErrRequestCancelled
	}
	return r.inner.Perform(ctx, req)
}
