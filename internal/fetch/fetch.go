// Package fetch provides the shared HTTP client used by the catalog and
// artwork scrapers, along with HTML document helpers.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 15 * time.Second

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes int64 = 8 << 20

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Kind classifies a fetch failure.
type Kind string

const (
	// KindNetwork covers transport errors, timeouts and non-2xx responses.
	KindNetwork Kind = "network"
	// KindParse covers unreadable bodies and malformed documents or payloads.
	KindParse Kind = "parse"
)

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s: %v", e.Kind, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Kind, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindNetwork
}

// IsParse reports whether err is a parse failure.
func IsParse(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindParse
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP status %d", e.code)
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// MaxBodyBytes bounds the response body. Larger bodies fail with a
	// KindParse error.
	MaxBodyBytes int64
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Client performs GET requests with a fixed per-request timeout. It is safe
// for concurrent use and meant to be constructed once per process.
type Client struct {
	http    *http.Client
	options Options
	render  renderFunc
}

// NewClient creates a client. A nil opts uses DefaultOptions.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		options: o,
	}
}

// Get retrieves urlStr. Query values in params are merged into the URL and
// headers override the client defaults. A non-2xx response returns the
// result together with a KindNetwork error.
func (c *Client) Get(ctx context.Context, urlStr string, params url.Values, headers map[string]string) (*Result, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Kind: KindNetwork, Message: "invalid URL", Cause: err}
	}
	if len(params) > 0 {
		q := parsedURL.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		parsedURL.RawQuery = q.Encode()
	}
	target := parsedURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{URL: target, Kind: KindNetwork, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", c.options.UserAgent)
	for key, value := range c.options.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: target, Kind: KindNetwork, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.options.MaxBodyBytes+1))
	if err != nil {
		return nil, &Error{URL: target, Kind: KindParse, Message: "failed to read response body", Cause: err}
	}
	if int64(len(body)) > c.options.MaxBodyBytes {
		return nil, &Error{URL: target, Kind: KindParse, Message: fmt.Sprintf("response body exceeds %d bytes", c.options.MaxBodyBytes)}
	}

	result := &Result{
		URL:         target,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &Error{
			URL:     target,
			Kind:    KindNetwork,
			Message: "unexpected response",
			Cause:   &statusError{code: resp.StatusCode},
		}
	}

	return result, nil
}

// Document fetches urlStr and parses the body as HTML.
func (c *Client) Document(ctx context.Context, urlStr string, params url.Values, headers map[string]string) (*goquery.Document, error) {
	result, err := c.Get(ctx, urlStr, params, headers)
	if err != nil {
		return nil, err
	}
	return ParseDocument(result.URL, result.Body)
}

// ParseDocument parses an HTML body fetched from urlStr.
func ParseDocument(urlStr string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{URL: urlStr, Kind: KindParse, Message: "failed to parse HTML", Cause: err}
	}
	if u, perr := url.Parse(urlStr); perr == nil {
		doc.Url = u
	}
	return doc, nil
}

// ResolveURL resolves ref against base. Absolute references are returned as-is
// and an unparsable reference yields "".
func ResolveURL(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}
