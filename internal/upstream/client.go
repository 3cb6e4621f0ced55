package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"congresshub-backend/internal/telemetry"
	"congresshub-backend/lib/restyutil"
	libtelemetry "congresshub-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	report_client_quota_exhausted = "client.quota-exhausted"
	report_client_request_failed  = "client.request-failed"
)

var meter = otel.Meter("congresshub.upstream")
var requestCounter, _ = meter.Int64Counter("upstream_requests")

// Client is the single choke point for all outbound calls to the upstream
// API. All source adapters share one instance; it owns the token bucket.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	tel     telemetry.API
	now     func() time.Time

	mu          sync.Mutex
	pausedUntil time.Time
}

type Options struct {
	BaseUrl      string
	ApiKey       string
	QuotaPerHour int
	Tel          telemetry.API
	// Now can be substituted in tests, defaults to time.Now.
	Now func() time.Time
}

func NewClient(opts Options) *Client {
	tel := telemetry.NewScopedAPI("upstream", opts.Tel)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetTimeout(time.Minute)
	httpClient.SetQueryParam("api_key", opts.ApiKey)

	// exponential backoff on transient failures: base 500ms, doubling,
	// capped at 30s, 5 attempts total. resty jitters each wait.
	httpClient.SetRetryCount(4)
	httpClient.SetRetryWaitTime(time.Millisecond * 500)
	httpClient.SetRetryMaxWaitTime(time.Second * 30)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res.StatusCode() >= 500
	})

	libtelemetry.InstrumentResty(httpClient, "congresshub.upstream")

	c := &Client{
		http: httpClient,
		// the bucket is sized to the upstream hourly quota and refills
		// continuously
		limiter: rate.NewLimiter(rate.Limit(float64(opts.QuotaPerHour)/3600), opts.QuotaPerHour),
		tel:     tel,
		now:     now,
	}

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if until, paused := c.paused(); paused {
			return &Error{
				Kind: KindRateLimited,
				Url:  req.URL,
				Err:  fmt.Errorf("quota exhausted until %s", until.UTC().Format(time.RFC3339)),
			}
		}
		return c.limiter.Wait(req.Context())
	})

	return c
}

// SetInstrumentOutput enables request/response dumps for debugging, in the
// same way the scrapers do.
func (c *Client) SetInstrumentOutput(dir string) {
	if dir == "" {
		return
	}
	restyutil.InstrumentClient(c.http, restyutil.NewFilesystemOutput(dir))
}

func (c *Client) paused() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Before(c.pausedUntil) {
		return c.pausedUntil, true
	}
	return time.Time{}, false
}

func (c *Client) parkUntil(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.pausedUntil) {
		c.pausedUntil = t
	}
}

// resetTime extracts the quota reset instant from rate limit headers,
// falling back to a minute from now when the upstream doesn't say.
func (c *Client) resetTime(headers http.Header) time.Time {
	if raw := headers.Get("X-RateLimit-Reset"); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(unix, 0)
		}
	}
	if raw := headers.Get("Retry-After"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil {
			return c.now().Add(time.Duration(seconds) * time.Second)
		}
	}
	return c.now().Add(time.Minute)
}

func (c *Client) observeQuota(res *resty.Response) {
	if res.StatusCode() == http.StatusTooManyRequests ||
		res.Header().Get("X-RateLimit-Remaining") == "0" {
		until := c.resetTime(res.Header())
		c.parkUntil(until)
		c.tel.ReportWarning(report_client_quota_exhausted, res.Request.URL, until)
	}
}

// Fetch issues one GET against the upstream, blocking on token acquisition.
// Errors are always a *Error classifying the failure.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	for k, vals := range query {
		for _, v := range vals {
			req.SetQueryParam(k, v)
		}
	}

	res, err := req.Get(path)
	outcome := c.classify(res, err)

	attrs := metric.WithAttributes(attribute.String("outcome", outcomeLabel(outcome)))
	requestCounter.Add(ctx, 1, attrs)

	if res != nil {
		slog.DebugContext(ctx, "upstream request",
			"path", path,
			"status", res.StatusCode(),
			"elapsed", res.Time(),
			"outcome", outcomeLabel(outcome),
		)
	}

	if outcome != nil {
		c.tel.ReportWarning(report_client_request_failed, outcome)
		return nil, outcome
	}
	return res, nil
}

func (c *Client) classify(res *resty.Response, err error) error {
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			return ue
		}
		reqUrl := ""
		if res != nil {
			reqUrl = res.Request.URL
		}
		return &Error{Kind: KindTransient, Url: reqUrl, Err: err}
	}

	c.observeQuota(res)

	status := res.StatusCode()
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Url: res.Request.URL}
	case status >= 500:
		return &Error{Kind: KindTransient, Status: status, Url: res.Request.URL}
	case status >= 400:
		return &Error{Kind: KindPermanent, Status: status, Url: res.Request.URL}
	}
	return nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k, ok := kindOf(err); ok {
		return k.String()
	}
	return "error"
}
