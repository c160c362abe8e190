// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/filmfinder/internal/pipeline"
	"github.com/jonathan/filmfinder/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
)

// Printer handles formatted output for the search and details commands.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCandidates outputs the ranked films for a query.
func (p *Printer) PrintCandidates(q types.Query, candidates []types.Candidate) {
	title := fmt.Sprintf("RESULTS FOR %q", q.Title)
	if q.HasYear() {
		title = fmt.Sprintf("RESULTS FOR %q (%d)", q.Title, q.Year)
	}

	if len(candidates) == 0 {
		p.printBox(title, "No matching films found")
		return
	}

	var sb strings.Builder
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, c.Title))
		if c.OriginalTitle != "" && c.OriginalTitle != c.Title {
			sb.WriteString(fmt.Sprintf("    Original: %s\n", c.OriginalTitle))
		}
		sb.WriteString(fmt.Sprintf("    Score: %.0f", c.Score))
		if c.Year > 0 {
			sb.WriteString(fmt.Sprintf("  Year: %d", c.Year))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("    %s\n", c.URL))
		if c.PosterURL != "" {
			sb.WriteString(fmt.Sprintf("    Poster: %s\n", c.PosterURL))
		}
		if i < len(candidates)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFilmDetails outputs the detail view of a catalog item.
func (p *Printer) PrintFilmDetails(details *types.FilmDetails) {
	if details == nil {
		return
	}

	available := "no"
	if details.DCPAvailable {
		available = "yes"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:   %s\n", details.Title))
	sb.WriteString(fmt.Sprintf("Item:    %s\n", details.ItemID))
	sb.WriteString(fmt.Sprintf("URL:     %s\n", details.URL))
	sb.WriteString(fmt.Sprintf("%-8s %s", details.Token+":", available))

	p.printBox("FILM DETAILS", sb.String())
}

// PrintEvent outputs a one-line progress update.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintEvent(event pipeline.Event) {
	if event.Count > 0 {
		fmt.Fprintf(p.out, "[%s] %s (%d)\n", event.Stage, event.Message, event.Count)
		return
	}
	fmt.Fprintf(p.out, "[%s] %s\n", event.Stage, event.Message)
}
