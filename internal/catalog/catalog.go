// Package catalog scrapes the Svensk Filmdatabas web catalog: search result
// listings, film detail pages and their information tables.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/filmfinder/internal/fetch"
	"github.com/jonathan/filmfinder/internal/types"
)

// DefaultBaseURL is the public catalog host.
const DefaultBaseURL = "https://www.svenskfilmdatabas.se"

// CSS selectors for the search listing.
const (
	resultItemSelector = "ul.list li.list__item"
	resultLinkSelector = "a.list__link"
	resultHeadSelector = "h3.list__heading"
	resultTypeSelector = "div.list__type"
)

var (
	itemIDQueryPattern   = regexp.MustCompile(`itemid=(\d+)`)
	itemIDSegmentPattern = regexp.MustCompile(`-(\d+)/?$`)
)

// Client talks to the catalog over a shared fetch.Client.
type Client struct {
	fetcher *fetch.Client
	baseURL string
	logger  *slog.Logger
}

// New creates a catalog client. An empty baseURL uses DefaultBaseURL.
func New(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Search returns the film hits for title in listing order. Non-film entries,
// trailers and entries without an item id are dropped; repeated item ids
// keep their first occurrence.
func (c *Client) Search(ctx context.Context, title string) ([]types.RawCandidate, error) {
	searchURL := c.baseURL + "/sv/"
	doc, err := c.fetcher.Document(ctx, searchURL, url.Values{"s": {title}}, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog search for %q: %w", title, err)
	}

	items := doc.Find(resultItemSelector)
	c.logger.Debug("catalog listing parsed", "title", title, "items", items.Length())

	var candidates []types.RawCandidate
	seen := make(map[string]bool)
	items.Each(func(_ int, item *goquery.Selection) {
		cand, ok := c.parseListItem(item)
		if !ok || seen[cand.ItemID] {
			return
		}
		seen[cand.ItemID] = true
		candidates = append(candidates, cand)
	})

	c.logger.Info("catalog search finished", "title", title, "candidates", len(candidates))
	return candidates, nil
}

func (c *Client) parseListItem(item *goquery.Selection) (types.RawCandidate, bool) {
	link := item.Find(resultLinkSelector).First()
	heading := item.Find(resultHeadSelector).First()
	if link.Length() == 0 || heading.Length() == 0 {
		return types.RawCandidate{}, false
	}

	href := strings.TrimSpace(link.AttrOr("href", ""))
	title := collapse(heading.Text())
	if href == "" || title == "" {
		return types.RawCandidate{}, false
	}

	if !strings.Contains(href, "type=film") {
		kind := strings.ToLower(collapse(item.Find(resultTypeSelector).First().Text()))
		if !strings.Contains(kind, "film") {
			return types.RawCandidate{}, false
		}
	}
	if strings.Contains(strings.ToLower(title), "trailer") {
		c.logger.Debug("skipping trailer", "title", title)
		return types.RawCandidate{}, false
	}

	itemID := ExtractItemID(href)
	if itemID == "" {
		return types.RawCandidate{}, false
	}

	return types.RawCandidate{
		Title:  title,
		URL:    fetch.ResolveURL(c.baseURL+"/", href),
		ItemID: itemID,
	}, true
}

// ExtractItemID returns the numeric item id of a catalog link, from its
// itemid query value or a trailing "-<digits>" path segment. It returns ""
// when neither is present.
func ExtractItemID(href string) string {
	if m := itemIDQueryPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := itemIDSegmentPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// ItemURL returns the detail page URL for itemID.
func (c *Client) ItemURL(itemID string) string {
	return fmt.Sprintf("%s/sv/item/?type=film&itemid=%s", c.baseURL, url.QueryEscape(itemID))
}

// collapse trims s and folds internal whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
