// Package titles canonicalizes free-text film titles for comparison.
package titles

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	trailingYearPattern      = regexp.MustCompile(`\s*\(\d{4}\)$`)
	trailingYearValuePattern = regexp.MustCompile(`\((\d{4})\)$`)
	trailingQualifierPattern = regexp.MustCompile(`\s*\(.*\)$`)
	nonAlphanumericPattern   = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// punctuationReplacer removes the separators that commonly differ between
// catalog listings of the same title.
var punctuationReplacer = strings.NewReplacer(":", "", "[", "", "]", "")

// Normalize returns the canonical comparison form of a title: trailing
// "(YYYY)" removed, accents folded to ASCII, punctuation stripped, lower-cased.
func Normalize(title string) string {
	if title == "" {
		return ""
	}

	stripped := trailingYearPattern.ReplaceAllString(strings.TrimSpace(title), "")
	stripped = punctuationReplacer.Replace(strings.TrimSpace(stripped))

	folded, err := foldToASCII(stripped)
	if err != nil {
		return strings.TrimSpace(strings.ToLower(nonAlphanumericPattern.ReplaceAllString(title, "")))
	}

	folded = nonAlphanumericPattern.ReplaceAllString(folded, "")
	return strings.TrimSpace(strings.ToLower(folded))
}

// foldToASCII decomposes s and drops every rune without an ASCII base form.
func foldToASCII(s string) (string, error) {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNonASCII)))
	result, _, err := transform.String(t, s)
	return result, err
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}

// ParseYear returns the year from a trailing "(YYYY)" suffix, or 0.
func ParseYear(title string) int {
	m := trailingYearValuePattern.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

// StripQualifier removes a trailing parenthetical note such as
// "Title (working title)". The input is returned unchanged when it has no
// parentheses or when stripping would leave nothing.
func StripQualifier(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "(") || !strings.Contains(s, ")") {
		return s
	}
	simple := strings.TrimSpace(trailingQualifierPattern.ReplaceAllString(s, ""))
	if simple == "" {
		return s
	}
	return simple
}
