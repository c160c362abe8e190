package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/filmfinder/internal/fetch"
	"github.com/jonathan/filmfinder/internal/titles"
	"github.com/jonathan/filmfinder/internal/types"
)

// DefaultToken is the availability token looked for by Details.
const DefaultToken = "DCP"

const (
	foldoutSelector     = "div.accordion__foldout"
	infoTableSelector   = "table.information-table"
	headingSelector     = "h1.page-header__heading"
	releaseSpanSelector = "span.page-header__heading--release"
	technicalSelector   = "div.technical-data, div.distribution-info, dl.attributes dt, dl.attributes dd"
)

var numericID = regexp.MustCompile(`^\d+$`)

// tokenPatterns caches compiled whole-word patterns by upper-cased token.
var tokenPatterns sync.Map

func tokenPattern(token string) *regexp.Regexp {
	key := strings.ToUpper(token)
	if re, ok := tokenPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := tokenPatterns.LoadOrStore(key, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(token)+`\b`))
	return re.(*regexp.Regexp)
}

// InvalidItemIDError is returned for item ids that are not purely numeric.
type InvalidItemIDError struct {
	ItemID string
}

func (e *InvalidItemIDError) Error() string {
	return fmt.Sprintf("invalid item id %q", e.ItemID)
}

// FetchOriginalTitle reads the original title from a film detail page. It
// returns "" with a nil error when the page has no original title row.
func (c *Client) FetchOriginalTitle(ctx context.Context, pageURL string) (string, error) {
	doc, err := c.fetcher.Document(ctx, pageURL, nil, nil)
	if err != nil {
		return "", fmt.Errorf("original title: %w", err)
	}

	title := originalTitle(doc)
	if title == "" {
		c.logger.Debug("no original title on page", "url", pageURL)
	} else {
		c.logger.Debug("original title found", "url", pageURL, "original_title", title)
	}
	return title, nil
}

// originalTitle finds the "Originaltitel" row in the titles section.
func originalTitle(doc *goquery.Document) string {
	table := infoTable(doc, "titles")
	if table == nil {
		return ""
	}

	var result string
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		th := row.Find("th").First()
		td := row.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return true
		}
		if !strings.Contains(strings.ToLower(collapse(th.Text())), "originaltitel") {
			return true
		}

		text := collapse(td.Text())
		if li := td.Find("li").First(); li.Length() > 0 {
			text = collapse(li.Text())
		}
		result = titles.StripQualifier(text)
		return false
	})
	return result
}

// infoTable returns the information table inside the foldout that follows
// the h2 with the given id, or nil.
func infoTable(doc *goquery.Document, sectionID string) *goquery.Selection {
	heading := doc.Find("h2#" + sectionID).First()
	if heading.Length() == 0 {
		return nil
	}
	foldout := heading.NextAllFiltered(foldoutSelector).First()
	if foldout.Length() == 0 {
		return nil
	}
	table := foldout.Find(infoTableSelector).First()
	if table.Length() == 0 {
		return nil
	}
	return table
}

// HasToken reports whether token is mentioned on the page at pageURL.
func (c *Client) HasToken(ctx context.Context, pageURL, token string) (bool, error) {
	doc, err := c.fetcher.Document(ctx, pageURL, nil, nil)
	if err != nil {
		return false, fmt.Errorf("token check: %w", err)
	}
	return hasToken(doc, token), nil
}

// hasToken looks for token as a whole word in the visible text, then as a
// substring in the distribution table and technical sections. Matching is
// case-insensitive.
func hasToken(doc *goquery.Document, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	if tokenPattern(token).MatchString(fetch.VisibleText(doc)) {
		return true
	}

	upper := strings.ToUpper(token)
	contains := func(s *goquery.Selection) bool {
		return strings.Contains(strings.ToUpper(s.Text()), upper)
	}

	if table := infoTable(doc, "companies"); table != nil {
		found := false
		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			found = contains(row.Find("th").First()) || contains(row.Find("td").First())
			return !found
		})
		if found {
			return true
		}
	}

	found := false
	doc.Find(technicalSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = contains(s)
		return !found
	})
	return found
}

// Details loads the detail view of itemID and checks it for token
// (DefaultToken when empty). Fetch failures degrade to a placeholder title
// and an unavailable token; only an invalid id is an error.
func (c *Client) Details(ctx context.Context, itemID, token string) (*types.FilmDetails, error) {
	if !numericID.MatchString(itemID) {
		return nil, &InvalidItemIDError{ItemID: itemID}
	}
	if token == "" {
		token = DefaultToken
	}

	details := &types.FilmDetails{
		ItemID: itemID,
		Title:  fmt.Sprintf("Film (ID: %s)", itemID),
		URL:    c.ItemURL(itemID),
		Token:  token,
	}

	doc, err := c.fetcher.Document(ctx, details.URL, nil, nil)
	if err != nil {
		c.logger.Warn("film details unavailable", "item_id", itemID, "error", err)
		return details, nil
	}

	if title := pageTitle(doc); title != "" {
		details.Title = title
	} else if ot := originalTitle(doc); ot != "" {
		details.Title = ot
	} else {
		c.logger.Warn("no title found on detail page", "item_id", itemID)
	}

	details.DCPAvailable = hasToken(doc, token)
	c.logger.Info("film details loaded",
		"item_id", itemID,
		"title", details.Title,
		"token", token,
		"available", details.DCPAvailable,
	)
	return details, nil
}

// pageTitle is the page heading without its release year span.
func pageTitle(doc *goquery.Document) string {
	heading := doc.Find(headingSelector).First()
	if heading.Length() == 0 {
		return ""
	}
	heading = heading.Clone()
	heading.Find(releaseSpanSelector).Remove()
	title := collapse(heading.Text())
	if strings.HasPrefix(title, "Film (ID:") {
		return ""
	}
	return title
}
