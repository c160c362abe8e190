package ranking

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// TokenSetRatio scores two strings 0-100 by the overlap of their word sets,
// ignoring word order and duplicate words. A string whose words are all
// contained in the other scores 100.
func TokenSetRatio(a, b string) float64 {
	pa, pb := preprocess(a), preprocess(b)
	if pa == "" || pb == "" {
		return 0
	}

	tokensA, tokensB := tokenSet(pa), tokenSet(pb)

	var intersection, onlyA, onlyB []string
	for tok := range tokensA {
		if tokensB[tok] {
			intersection = append(intersection, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if !tokensA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(intersection)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	return max(ratio(sect, combinedA), ratio(sect, combinedB), ratio(combinedA, combinedB))
}

// ratio is the indel similarity of two strings scaled to 0-100 and rounded
// half to even. Either side empty scores 0.
func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := edlib.LCS(a, b)
	return math.RoundToEven(100 * float64(2*lcs) / float64(la+lb))
}

// preprocess lower-cases s and replaces every run of non-alphanumerics with a
// single space.
func preprocess(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
