package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/VIDA-NYU/openclean-geo/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration

	// MaxRetries is the total number of attempts per download.
	MaxRetries int

	// RateLimiters throttles requests per host. Hosts without an entry
	// share a default limiter.
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher downloads files over HTTP(S) with per-host rate limiting and
// retry on transient failures.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	fallback *rate.Limiter
}

// NewHTTPFetcher returns a fetcher with the given options; zero fields get
// defaults suited to bulk Census downloads.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "openclean-geo/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		fallback: rate.NewLimiter(10, 10),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.fallback
	}
	if lim, ok := f.opts.RateLimiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

// Download fetches the URL and returns the response body. Transport errors
// and retryable status codes (429, 5xx) are retried with backoff; other
// non-OK statuses fail immediately.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: request %s", rawURL)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = f.opts.MaxRetries
	cfg.OnRetry = resilience.RetryLogger("fetcher", "download")

	lim := f.limiterFor(rawURL)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limit wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			// The net.Error survives the wrap, so IsTransient still sees
			// timeouts and refused connections.
			return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			statusErr := eris.Errorf("fetcher: %s returned %d", rawURL, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return resp.Body, nil
	})
}

// DownloadToFile fetches the URL into a local file.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck
	return writeFile(body, path)
}
