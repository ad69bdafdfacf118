// Package httploader fetches remote schema documents over http and https.
//
// A Loader applies a deadline to every fetch and, unless configured
// otherwise, makes exactly one attempt per url.
package httploader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/schemaval/validate/loader"
)

// DefaultTimeout bounds a single fetch when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Options configures a Loader.
type Options struct {
	Timeout   time.Duration // per fetch, including reading the body
	Retries   int           // extra attempts on transport errors and 5xx responses
	Backoff   time.Duration // delay before the first retry, doubled afterwards
	Insecure  bool          // skip TLS certificate verification
	UserAgent string
	Logger    *slog.Logger
}

// Loader fetches and decodes documents. It is safe for concurrent use.
type Loader struct {
	client    *http.Client
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	userAgent string
	logger    *slog.Logger
}

// New returns a Loader configured by opts.
func New(opts Options) *Loader {
	client := &http.Client{}
	if opts.Insecure {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return NewWithClient(client, opts)
}

// NewWithClient is like New but uses the given client.
func NewWithClient(client *http.Client, opts Options) *Loader {
	l := &Loader{
		client:    client,
		timeout:   opts.Timeout,
		retries:   opts.Retries,
		backoff:   opts.Backoff,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
	}
	if l.timeout <= 0 {
		l.timeout = DefaultTimeout
	}
	if l.backoff <= 0 {
		l.backoff = 200 * time.Millisecond
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// StatusError reports a response whose status is not 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status code %d", e.URL, e.StatusCode)
}

// DecodeError reports a response body that could not be decoded.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Fetch gets url and decodes the response body.
func (l *Loader) Fetch(ctx context.Context, url string) (any, error) {
	delay := l.backoff
	for attempt := 0; ; attempt++ {
		doc, err := l.fetch(ctx, url)
		if err == nil || attempt >= l.retries || !retryable(err) {
			return doc, err
		}
		l.logger.Debug("retrying fetch", "url", url, "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml;q=0.9, */*;q=0.5")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	start := time.Now()
	l.logger.Debug("fetching", "url", url)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("fetched", "url", url, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))

	doc, err := loader.Decode(body, isYAML(url, resp.Header.Get("Content-Type")))
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return doc, nil
}

func isYAML(url, ctype string) bool {
	if i := strings.IndexAny(url, "?#"); i != -1 {
		url = url[:i]
	}
	if strings.HasSuffix(url, ".yaml") || strings.HasSuffix(url, ".yml") {
		return true
	}
	if i := strings.IndexByte(ctype, ';'); i != -1 {
		ctype = ctype[:i]
	}
	ctype = strings.TrimSpace(ctype)
	return strings.HasSuffix(ctype, "/yaml") || strings.HasSuffix(ctype, "-yaml")
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	var de *DecodeError
	return !errors.As(err, &de)
}
