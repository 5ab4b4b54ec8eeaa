// Package render prints command results.
package render

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/maxiofs/kvctl/internal/scan"
)

// Format selects how key/value pairs are printed.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
)

// Result writes res to w. Key-only and value-only results are always printed
// one entry per line; pairs use the requested format.
func Result(w io.Writer, res *scan.Result, format Format) error {
	switch res.Projection {
	case scan.ProjectKeys:
		return Lines(w, res.Keys())
	case scan.ProjectValues:
		return Lines(w, res.Values())
	}
	if format == FormatJSON {
		return JSON(w, res.Pairs())
	}
	return Table(w, res.Pairs())
}

// Lines writes each entry on its own line.
func Lines(w io.Writer, entries []string) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// JSON writes pairs as a single-line array of [key, value] arrays.
func JSON(w io.Writer, pairs [][2]string) error {
	if pairs == nil {
		pairs = [][2]string{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(pairs)
}

// Table writes pairs as a box-drawn two-column table with a separator
// between rows. Nothing is written for an empty result.
func Table(w io.Writer, pairs [][2]string) error {
	if len(pairs) == 0 {
		return nil
	}

	rows := make([][2][]string, len(pairs))
	var widths [2]int
	for i, p := range pairs {
		for c := 0; c < 2; c++ {
			lines := strings.Split(p[c], "\n")
			rows[i][c] = lines
			for _, l := range lines {
				widths[c] = max(widths[c], utf8.RuneCountInString(l))
			}
		}
	}

	bw := bufio.NewWriter(w)
	rule := func(left, mid, right string) {
		fmt.Fprintf(bw, "%s%s%s%s%s\n", left,
			strings.Repeat("─", widths[0]+2), mid,
			strings.Repeat("─", widths[1]+2), right)
	}

	rule("┌", "┬", "┐")
	for i, row := range rows {
		if i > 0 {
			rule("├", "┼", "┤")
		}
		height := max(len(row[0]), len(row[1]))
		for l := 0; l < height; l++ {
			bw.WriteString("│")
			for c := 0; c < 2; c++ {
				var text string
				if l < len(row[c]) {
					text = row[c][l]
				}
				pad := widths[c] - utf8.RuneCountInString(text)
				fmt.Fprintf(bw, " %s%s │", text, strings.Repeat(" ", pad))
			}
			bw.WriteString("\n")
		}
	}
	rule("└", "┴", "┘")
	return bw.Flush()
}
