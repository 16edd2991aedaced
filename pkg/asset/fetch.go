package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher retrieves the raw bytes of an asset. Implementations must be safe
// for concurrent use; loads run on their own goroutines.
type Fetcher interface {
	Fetch(ctx context.Context, assetPath string) ([]byte, error)
}

// FileFetcher reads assets below Root. Paths are always resolved inside
// Root; ".." cannot escape it.
type FileFetcher struct {
	Root string
}

// Fetch reads the file for assetPath.
func (f FileFetcher) Fetch(ctx context.Context, assetPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := path.Clean("/" + filepath.ToSlash(assetPath))
	full := filepath.Join(f.Root, filepath.FromSlash(rel))
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", full, ErrNotFound)
	}
	return data, err
}

// HTTPFetcher downloads assets with retries. Relative paths are resolved
// against the base URL.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher returns a fetcher for baseURL. A zero timeout means 30s.
func NewHTTPFetcher(baseURL string, timeout time.Duration, retries int) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &HTTPFetcher{client: client}
}

// Fetch issues a GET for assetPath.
func (f *HTTPFetcher) Fetch(ctx context.Context, assetPath string) ([]byte, error) {
	url := assetPath
	if !isURL(assetPath) {
		url = "/" + strings.TrimLeft(assetPath, "/")
	}
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", url, ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status())
	}
	return resp.Body(), nil
}

// RouteFetcher sends absolute http(s) URLs to Remote and everything else
// to Local. With no Local fetcher every path goes to Remote.
type RouteFetcher struct {
	Local  Fetcher
	Remote Fetcher
}

// Fetch dispatches on the form of assetPath.
func (r RouteFetcher) Fetch(ctx context.Context, assetPath string) ([]byte, error) {
	switch {
	case r.Remote != nil && (isURL(assetPath) || r.Local == nil):
		return r.Remote.Fetch(ctx, assetPath)
	case r.Local != nil:
		return r.Local.Fetch(ctx, assetPath)
	}
	return nil, fmt.Errorf("no fetcher for %q", assetPath)
}

// Options configures NewFetcher.
type Options struct {
	Root    string
	BaseURL string
	Timeout time.Duration
	Retries int
}

// NewFetcher builds the fetcher for opts: files under Root, plus HTTP when
// BaseURL is set or a path is an absolute URL.
func NewFetcher(opts Options) Fetcher {
	rf := RouteFetcher{Remote: NewHTTPFetcher(opts.BaseURL, opts.Timeout, opts.Retries)}
	if opts.BaseURL == "" || opts.Root != "" {
		rf.Local = FileFetcher{Root: opts.Root}
	}
	return rf
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Name returns the node name for an asset path: its last path element,
// without any URL query or fragment.
func Name(assetPath string) string {
	p := assetPath
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "furniture"
	}
	return p
}
