// Package fetch - browser.go provides headless browser rendering for pages
// that refuse plain HTTP clients.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// DefaultBrowserTimeout bounds a single headless render.
const DefaultBrowserTimeout = 30 * time.Second

// renderFunc renders a page and returns its HTML.
type renderFunc func(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (string, error)

// shouldRender reports whether a response looks like an anti-bot challenge
// that a real browser could get past.
func shouldRender(result *Result, err error) bool {
	if result == nil {
		return false
	}
	switch result.StatusCode {
	case http.StatusForbidden, http.StatusAccepted, http.StatusTooManyRequests:
		return true
	}
	return err == nil && len(result.Body) == 0
}

// DocumentWithBrowserFallback behaves like Document, but when the server
// answers with a challenge status (403, 202, 429) or an empty body the page
// is rendered in a headless browser instead.
func (c *Client) DocumentWithBrowserFallback(ctx context.Context, urlStr string, params url.Values, headers map[string]string, logger *slog.Logger) (*goquery.Document, error) {
	result, err := c.Get(ctx, urlStr, params, headers)
	if !shouldRender(result, err) {
		if err != nil {
			return nil, err
		}
		return ParseDocument(result.URL, result.Body)
	}

	render := c.render
	if render == nil {
		render = RenderWithBrowser
	}
	html, rerr := render(ctx, result.URL, DefaultBrowserTimeout, logger)
	if rerr != nil {
		return nil, &Error{URL: result.URL, Kind: KindNetwork, Message: "browser fallback failed", Cause: rerr}
	}
	return ParseDocument(result.URL, []byte(html))
}

// RenderWithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func RenderWithBrowser(ctx context.Context, pageURL string, timeout time.Duration, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("starting headless browser", "url", pageURL)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		// Give client-side scripts a moment to populate the poster markup.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("rendered page", "url", pageURL, "bytes", len(html))
	return html, nil
}
