package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

const fetcherUserAgent = "member-qa/1.0"

// Candidate endpoint paths tried in order against the base URL.
var messagePaths = []string{"/messages", "/messages/"}

// Fetcher retrieves the raw message set from the upstream messages API.
// Redirect handling is manual: at most one extra GET per attempt, to the
// resolved Location of a 3xx response. There is no retry loop beyond that;
// a failed attempt moves on to the next candidate path.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
}

func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch returns the first successful payload across the candidate paths,
// or the last error wrapped as ErrFetchFailed once every path has failed.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Message, error) {
	var lastErr error
	for _, path := range messagePaths {
		url := f.baseURL + path
		items, err := f.fetchOnce(ctx, url)
		if err == nil {
			return items, nil
		}
		slog.Warn("messages_fetch_failed", "url", url, "error", err)
		lastErr = err
	}
	return nil, domain.WrapError(domain.ErrFetchFailed, "fetch messages", lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]domain.Message, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if loc := redirectLocation(resp); loc != "" {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if strings.HasPrefix(loc, "/") {
			loc = f.baseURL + loc
		}
		resp, err = f.get(ctx, loc)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("messages status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Items []domain.Message `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode messages payload: %w", err)
	}
	return payload.Items, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create messages request: %w", err)
	}
	req.Header.Set("User-Agent", fetcherUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messages request: %w", err)
	}
	return resp, nil
}

func redirectLocation(resp *http.Response) string {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return resp.Header.Get("Location")
	default:
		return ""
	}
}
