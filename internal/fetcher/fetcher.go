package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"media_grabber/internal/domain"
)

const defaultUserAgent = "MediaGrabber/1.0"

// Config holds photo download settings. A zero Timeout means no timeout.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads photo bytes over HTTP. It never retries.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func New(cfg Config) *Fetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: ua,
	}
}

// Fetch streams the body of url into w and returns the number of bytes
// written. Every failure is a *domain.TransferError.
func (f *Fetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &domain.TransferError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, &domain.TransferError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, &domain.TransferError{URL: url, StatusCode: resp.StatusCode}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &domain.TransferError{URL: url, Err: err}
	}

	return n, nil
}
