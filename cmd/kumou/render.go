package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/kumou/internal/align"
	"github.com/example/kumou/internal/analysis"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/term"
)

const defaultWidth = 80

// padRight pads s with spaces to width terminal cells. Wide (CJK) runes
// count as two cells and ANSI sequences as none.
func padRight(s string, width int) string {
	if n := ansi.PrintableRuneWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// writeTable writes rows as space-separated, width-aligned columns.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = ansi.PrintableRuneWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], ansi.PrintableRuneWidth(cell))
		}
	}

	writeRow := func(cells []string) error {
		var b strings.Builder
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(padRight(cell, widths[i]))
			b.WriteString("  ")
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
		return err
	}

	if err := writeRow(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// tokenRows lays out one row per token of s.
func tokenRows(s analysis.Sentence) [][]string {
	rows := make([][]string, 0, len(s.Tokens))
	for i, tok := range s.Tokens {
		iv := s.Intervals[i]
		rows = append(rows, []string{
			fmt.Sprint(i),
			tok.Surface,
			fmt.Sprintf("%d-%d", iv.Start, iv.End),
			analysis.PosEnglish(tok.PosMajor),
			tok.Reading,
			tok.BaseForm,
		})
	}
	return rows
}

var tokenHeader = []string{"#", "surface", "span", "pos", "reading", "base"}

// renderHighlight returns s.Text with token idx marked. With color the token
// is shown in reverse video, otherwise it is bracketed.
func renderHighlight(s analysis.Sentence, idx int, ok, color bool) string {
	runes := []rune(s.Text)

	var b strings.Builder
	cursor := 0
	for i, iv := range s.Intervals {
		start := min(max(iv.Start, cursor), len(runes))
		end := min(max(iv.End, start), len(runes))
		b.WriteString(string(runes[cursor:start]))

		tok := string(runes[start:end])
		switch {
		case !ok || i != idx:
			b.WriteString(tok)
		case color:
			b.WriteString("\x1b[7m" + tok + "\x1b[27m")
		default:
			b.WriteString("[" + tok + "]")
		}
		cursor = end
	}
	b.WriteString(string(runes[cursor:]))
	return b.String()
}

// clip shortens s to width cells, marking the cut with an ellipsis.
func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// terminalWidth reports whether w is a terminal and, if so, its width.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth, true
	}
	return width, true
}

// highlightView prints highlight changes for the speak command. On a
// terminal it redraws the sentence in place; otherwise it prints one line
// per spoken token.
type highlightView struct {
	w     io.Writer
	live  bool
	width int
}

func newHighlightView(w io.Writer) *highlightView {
	width, live := terminalWidth(w)
	return &highlightView{w: w, live: live, width: width}
}

func (v *highlightView) show(s analysis.Sentence, idx int, ok bool) {
	if v.live {
		line := clip(renderHighlight(s, idx, ok, true), v.width-1)
		_, _ = fmt.Fprintf(v.w, "\r\x1b[2K%s", line)
		return
	}
	if !ok {
		return
	}
	tok := s.Tokens[idx]
	_, _ = fmt.Fprintf(v.w, "%d/%d\t%s\t%s\n",
		idx+1, len(s.Tokens), align.Slice(s.Text, s.Intervals[idx]), analysis.PosEnglish(tok.PosMajor))
}

func (v *highlightView) finish(s analysis.Sentence) {
	if v.live {
		_, _ = fmt.Fprintf(v.w, "\r\x1b[2K%s\n", clip(s.Text, v.width-1))
	}
}
