// Package artwork finds cover art for a film on IMDb: a title search picks
// the best matching title page, and the page is then scraped for a poster.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/filmfinder/internal/fetch"
	"github.com/jonathan/filmfinder/internal/ranking"
	"github.com/jonathan/filmfinder/internal/titles"
)

const (
	// DefaultBaseURL is the public IMDb host.
	DefaultBaseURL = "https://www.imdb.com"
	// MinPageDelay is the minimum pause before each title page request.
	MinPageDelay = 500 * time.Millisecond
)

// Sentinel errors for expected absences.
var (
	ErrNoMatch   = errors.New("no matching title")
	ErrNoArtwork = errors.New("no artwork on title page")
)

const (
	resultsSelector         = `main section[data-testid="find-results-section-title"] ul li div`
	legacyResultsSelector   = ".findResult"
	resultTitleLinkSelector = `a[class*="ipc-metadata-list-summary-item__t"], .result_text a`
	resultYearSelector      = `span[class*="ipc-metadata-list-summary-item__li"], .result_text`
	titlePathPrefix         = "/title/tt"
)

var (
	parenYearPattern = regexp.MustCompile(`\((\d{4})\)`)
	bareYearPattern  = regexp.MustCompile(`\b(\d{4})\b`)
)

var requestHeaders = map[string]string{
	"Accept-Language": "en-US,en;q=0.9",
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// PageDelay is waited before every title page request; it is never
	// shorter than MinPageDelay.
	PageDelay time.Duration
	// UseBrowser renders pages in headless Chrome when the site answers with
	// an anti-bot response.
	UseBrowser bool
}

// Client searches IMDb and extracts artwork from title pages.
type Client struct {
	fetcher    *fetch.Client
	opts       Options
	strategies []Strategy
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates an artwork client.
func New(fetcher *fetch.Client, opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.PageDelay < MinPageDelay {
		opts.PageDelay = MinPageDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		fetcher:    fetcher,
		opts:       opts,
		strategies: DefaultStrategies(),
		logger:     logger,
		sleep:      sleepContext,
	}
}

// PageDelay returns the effective delay before title page requests.
func (c *Client) PageDelay() time.Duration {
	return c.opts.PageDelay
}

// FindBestMatch searches for title and returns the absolute URL of the
// best accepted title page. year may be 0. It returns ErrNoMatch when no
// result passes ranking.Accept.
func (c *Client) FindBestMatch(ctx context.Context, title string, year int) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("empty title: %w", ErrNoMatch)
	}

	query := title
	if year > 0 {
		query = fmt.Sprintf("%s %d", title, year)
	}
	params := url.Values{
		"q":    {query},
		"s":    {"tt"},
		"ref_": {"fn_al_tt_1"},
	}

	doc, err := c.document(ctx, c.opts.BaseURL+"/find/", params)
	if err != nil {
		return "", fmt.Errorf("title search for %q: %w", title, err)
	}

	results := doc.Find(resultsSelector)
	if results.Length() == 0 {
		results = doc.Find(legacyResultsSelector)
	}
	c.logger.Debug("title search parsed", "query", query, "results", results.Length())

	normalized := titles.Normalize(title)
	bestComposite := -1.0
	bestHref := ""

	results.Each(func(_ int, result *goquery.Selection) {
		link := result.Find(resultTitleLinkSelector).First()
		if link.Length() == 0 {
			return
		}
		text := strings.Join(strings.Fields(link.Text()), " ")
		href := link.AttrOr("href", "")
		if text == "" || !strings.HasPrefix(href, titlePathPrefix) {
			return
		}

		resultYear := parseResultYear(result.Find(resultYearSelector).First().Text())
		score := ranking.TokenSetRatio(normalized, titles.Normalize(text))
		accepted, composite := ranking.Accept(score, year, resultYear)

		c.logger.Debug("title search candidate",
			"title", text,
			"year", resultYear,
			"score", score,
			"accepted", accepted,
			"href", href,
		)

		if accepted && composite > bestComposite {
			bestComposite = composite
			bestHref = href
		}
	})

	if bestHref == "" {
		return "", fmt.Errorf("%q (%d): %w", title, year, ErrNoMatch)
	}

	match := fetch.ResolveURL(c.opts.BaseURL+"/", bestHref)
	c.logger.Debug("best title match", "title", title, "url", match, "composite", bestComposite)
	return match, nil
}

// parseResultYear prefers a parenthesized year and falls back to any
// standalone four-digit number. It returns 0 when there is none.
func parseResultYear(text string) int {
	m := parenYearPattern.FindStringSubmatch(text)
	if m == nil {
		m = bareYearPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

// ExtractArtwork waits the page delay, loads itemURL and runs the
// extraction strategies in order. The first non-empty result is returned
// as an absolute URL; ErrNoArtwork is returned when every strategy comes up
// empty.
func (c *Client) ExtractArtwork(ctx context.Context, itemURL string) (string, error) {
	if err := c.sleep(ctx, c.opts.PageDelay); err != nil {
		return "", err
	}

	doc, err := c.document(ctx, itemURL, nil)
	if err != nil {
		return "", fmt.Errorf("title page: %w", err)
	}

	for _, s := range c.strategies {
		src, err := s.Extract(doc)
		if err != nil {
			c.logger.Debug("artwork strategy failed", "strategy", s.Name, "url", itemURL, "error", err)
			continue
		}
		if src == "" {
			continue
		}
		resolved := fetch.ResolveURL(itemURL, src)
		if resolved == "" {
			continue
		}
		c.logger.Debug("artwork found", "strategy", s.Name, "url", itemURL, "artwork", resolved)
		return resolved, nil
	}

	return "", fmt.Errorf("%s: %w", itemURL, ErrNoArtwork)
}

func (c *Client) document(ctx context.Context, pageURL string, params url.Values) (*goquery.Document, error) {
	if c.opts.UseBrowser {
		return c.fetcher.DocumentWithBrowserFallback(ctx, pageURL, params, requestHeaders, c.logger)
	}
	return c.fetcher.Document(ctx, pageURL, params, requestHeaders)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
