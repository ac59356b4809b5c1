package irfilter

import (
	"regexp"
	"strings"
)

type (
	Options struct {
		DebugInfo bool
		Metadata  bool
	}

	Filter struct {
		re *regexp.Regexp
	}
)

var (
	inline = []string{
		`,? #\d+( \{)?$`,
	}

	lines = []string{
		`; ModuleID = '.+'`,
		`(source_filename|target datalayout|target triple) = ".+"`,
		`; Function Attrs: .+`,
		`declare .+`,
		`attributes #\d+ = \{ .+ \}`,
	}

	debugInline = []string{
		`,? !dbg !\d+`,
		`,? debug-location !\d+`,
	}

	debugLines = []string{
		`[ \t]+(?:tail[ \t])?call void @llvm\.dbg.+`,
		`[ \t]+DBG_.+`,
		`(!\d+) = (?:distinct )?!DI([A-Za-z]+)\(([^)]+?)\).*`,
		`(!\d+) = (?:distinct )?!\{.*\}.*`,
		`(![.A-Z_a-z-]+) = (?:distinct )?!\{.*\}.*`,
	}

	metadataInline = []string{
		`,?(?: ![\d.A-Za-z]+){2}`,
	}
)

var Default = Options{DebugInfo: true, Metadata: true}

// New compiles the filter set: whole lines matching a line filter are removed,
// inline filters only cut the matched part.
func New(opts Options) *Filter {
	in := append([]string{}, inline...)
	ln := append([]string{}, lines...)

	if opts.DebugInfo {
		ln = append(ln, debugLines...)
		in = append(in, debugInline...)
	}

	if opts.Metadata {
		in = append(in, metadataInline...)
	}

	lineRe := `^(?:` + group(ln) + `)(?:\r\n|\n|\r)`

	return &Filter{
		re: regexp.MustCompile(`(?m)(?:` + lineRe + `)|(?:` + group(in) + `)`),
	}
}

// Apply filters the text. Line terminators are normalized to "\n".
func (f *Filter) Apply(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return f.re.ReplaceAllLiteralString(text, "")
}

func group(res []string) string {
	var b strings.Builder

	for i, re := range res {
		if i != 0 {
			b.WriteByte('|')
		}

		b.WriteString("(?:")
		b.WriteString(re)
		b.WriteString(")")
	}

	return b.String()
}
