package artwork

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/filmfinder/internal/fetch"
	"github.com/jonathan/filmfinder/internal/schemas"
)

// Strategy extracts an artwork URL from a parsed title page. Extract returns
// "" when the page has nothing for this strategy and an error when the data
// it reads is malformed.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) (string, error)
}

// DefaultStrategies returns the extraction strategies in priority order:
// embedded JSON-LD, the poster image element, then the og:image meta tag.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "jsonld", Extract: fromJSONLD},
		{Name: "poster", Extract: fromPosterImage},
		{Name: "og:image", Extract: fromOpenGraph},
	}
}

type movieLD struct {
	Type  string          `json:"@type"`
	Image json.RawMessage `json:"image"`
}

func fromJSONLD(doc *goquery.Document) (string, error) {
	validator, err := schemas.MovieLD()
	if err != nil {
		return "", err
	}

	pageURL := ""
	if doc.Url != nil {
		pageURL = doc.Url.String()
	}

	var firstErr error
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		payload := []byte(strings.TrimSpace(s.Text()))
		if len(payload) == 0 {
			return true
		}

		if err := validator.Validate(payload); err != nil {
			if firstErr == nil {
				firstErr = &fetch.Error{URL: pageURL, Kind: fetch.KindParse, Message: "invalid JSON-LD", Cause: err}
			}
			return true
		}

		var ld movieLD
		if err := json.Unmarshal(payload, &ld); err != nil {
			if firstErr == nil {
				firstErr = &fetch.Error{URL: pageURL, Kind: fetch.KindParse, Message: "undecodable JSON-LD", Cause: err}
			}
			return true
		}
		if ld.Type != "Movie" {
			return true
		}

		found = imageURL(ld.Image)
		return found == ""
	})

	if found != "" {
		return found, nil
	}
	return "", firstErr
}

// imageURL reads an image that is either a plain URL string or an object
// with a url field.
func imageURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.URL)
	}
	return ""
}

func fromPosterImage(doc *goquery.Document) (string, error) {
	img := doc.Find(`div[class*="poster"] img[class*="ipc-image"]`).First()
	return strings.TrimSpace(img.AttrOr("src", "")), nil
}

func fromOpenGraph(doc *goquery.Document) (string, error) {
	meta := doc.Find(`meta[property="og:image"]`).First()
	return strings.TrimSpace(meta.AttrOr("content", "")), nil
}
