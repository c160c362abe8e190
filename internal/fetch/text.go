package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches elements whose text is never shown to a reader.
const noiseSelector = "script, style, noscript, template"

// VisibleText returns the whitespace-normalized text of the document body
// with scripts and styles removed. The document is not modified.
func VisibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	if body.Length() == 0 {
		body = doc.Selection.Clone()
	}
	body.Find(noiseSelector).Remove()
	return CleanWhitespace(body.Text())
}

// CleanWhitespace trims every line and drops blank ones.
func CleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
