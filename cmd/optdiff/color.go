package main

import (
	"bytes"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"tlog.app/go/errors"
)

type (
	palette struct {
		header lipgloss.Style
		hunk   lipgloss.Style
		add    lipgloss.Style
		remove lipgloss.Style
	}
)

var (
	addColor    = lipgloss.Color("42")
	removeColor = lipgloss.Color("1")
	hunkColor   = lipgloss.Color("6")
)

// colorMode decides whether to color the output.
// auto colors terminals unless the pager highlights diffs itself.
func colorMode(mode string, tty bool, pager string, paged bool) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return tty && !(paged && highlights(pager)), nil
	default:
		return false, errors.New("unsupported color mode: %q", mode)
	}
}

func newPalette(w io.Writer, force bool) palette {
	r := lipgloss.NewRenderer(w)

	if force {
		r.SetColorProfile(termenv.ANSI256)
	}

	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)

	return palette{
		header: base.Bold(true),
		hunk:   base.Foreground(hunkColor),
		add:    base.Foreground(addColor),
		remove: base.Foreground(removeColor),
	}
}

// colorize styles a rendered diff line by line.
func (p palette) colorize(b []byte) []byte {
	out := make([]byte, 0, len(b)+len(b)/4)
	header := 0

	for len(b) != 0 {
		line := b
		b = nil

		if end := bytes.IndexByte(line, '\n'); end >= 0 {
			line, b = line[:end], line[end+1:]
		}

		var st *lipgloss.Style

		switch {
		case bytes.HasPrefix(line, []byte("diff --git ")):
			header = 2
			st = &p.header
		case header != 0:
			header--
			st = &p.header
		case bytes.HasPrefix(line, []byte("@@")):
			st = &p.hunk
		case bytes.HasPrefix(line, []byte("+")):
			st = &p.add
		case bytes.HasPrefix(line, []byte("-")):
			st = &p.remove
		}

		if st == nil || len(line) == 0 {
			out = append(out, line...)
		} else {
			out = append(out, st.Render(string(line))...)
		}

		out = append(out, '\n')
	}

	return out
}
