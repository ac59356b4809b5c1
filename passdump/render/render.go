package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	godiff "github.com/sourcegraph/go-diff/diff"
	"tlog.app/go/errors"

	"github.com/slowlang/optdiff/passdump/demangle"
	"github.com/slowlang/optdiff/passdump/textdiff"
)

type (
	Selection struct {
		SkipUnchanged bool

		// Function selects functions by exact name or by regexp if Regex is set.
		Function string

		// Pass selects passes containing the substring, case insensitive,
		// or matching regexp if Regex is set.
		Pass string

		Regex bool

		// Demangle makes names be matched in demangled form.
		Demangle bool
	}

	Style struct {
		Demangle bool
	}

	FunctionNotFoundError struct {
		Name  string
		Regex bool
	}
)

// Filter selects diffs to be shown keeping their order.
func Filter(diffs []textdiff.PassDiff, sel Selection) (r []textdiff.PassDiff, err error) {
	fmatch, err := matcher(sel.Function, sel.Regex, true)
	if err != nil {
		return nil, errors.Wrap(err, "function")
	}

	pmatch, err := matcher(sel.Pass, sel.Regex, false)
	if err != nil {
		return nil, errors.Wrap(err, "pass")
	}

	found := false

	for _, d := range diffs {
		fname, pname := d.Function, d.Pass

		if sel.Demangle {
			fname = demangle.Name(fname)
			pname = demangle.Text(pname)
		}

		if fmatch != nil && !fmatch(fname) {
			continue
		}

		found = true

		if pmatch != nil && !pmatch(pname) {
			continue
		}

		if sel.SkipUnchanged && !d.Changed {
			continue
		}

		r = append(r, d)
	}

	if fmatch != nil && !found {
		return nil, FunctionNotFoundError{Name: sel.Function, Regex: sel.Regex}
	}

	return r, nil
}

// Render writes diffs as unified diff text.
func Render(w io.Writer, diffs []textdiff.PassDiff, st Style) error {
	b, err := Append(nil, diffs, st)
	if err != nil {
		return err
	}

	_, err = w.Write(b)

	return err
}

// Append renders every diff as a block:
//
//	diff --git a/(2·foo) SROAPass on foo b/(2·foo) SROAPass on foo
//	--- a/(2·foo) SROAPass on foo
//	+++ b/(2·foo) SROAPass on foo
//	@@ -1,4 +1,3 @@
//	...
func Append(b []byte, diffs []textdiff.PassDiff, st Style) (_ []byte, err error) {
	for _, d := range diffs {
		b, err = appendDiff(b, d, st)
		if err != nil {
			return nil, errors.Wrap(err, "func %v: pass %d", d.Function, d.Index)
		}
	}

	return b, nil
}

// Title names a diff block.
func Title(d textdiff.PassDiff, st Style) string {
	fname, pname := d.Function, d.Pass

	if st.Demangle {
		fname = demangle.Name(fname)
		pname = demangle.Text(pname)
	}

	return fmt.Sprintf("(%d·%s) %s", d.Index, fname, pname)
}

func appendDiff(b []byte, d textdiff.PassDiff, st Style) ([]byte, error) {
	title := Title(d, st)

	b = hfmt.Appendf(b, "diff --git a/%s b/%s\n", title, title)
	b = hfmt.Appendf(b, "--- a/%s\n", title)
	b = hfmt.Appendf(b, "+++ b/%s\n", title)

	if len(d.Hunks) == 0 {
		return b, nil
	}

	hunks := make([]*godiff.Hunk, len(d.Hunks))

	for i, h := range d.Hunks {
		hunks[i] = convert(h, st)
	}

	p, err := godiff.PrintHunks(hunks)
	if err != nil {
		return nil, errors.Wrap(err, "print hunks")
	}

	return append(b, p...), nil
}

func convert(h textdiff.Hunk, st Style) *godiff.Hunk {
	var body []byte

	for _, l := range h.Lines {
		text := l.Text
		if st.Demangle {
			text = demangle.Text(text)
		}

		body = append(body, l.Kind.Prefix())
		body = append(body, text...)
		body = append(body, '\n')
	}

	return &godiff.Hunk{
		OrigStartLine: int32(h.BeforeStart),
		OrigLines:     int32(h.BeforeCount),
		NewStartLine:  int32(h.AfterStart),
		NewLines:      int32(h.AfterCount),
		Body:          body,
	}
}

func matcher(pattern string, isRegex, exact bool) (func(string) bool, error) {
	switch {
	case pattern == "":
		return nil, nil
	case isRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "invalid regex pattern: %v", pattern)
		}

		return re.MatchString, nil
	case exact:
		return func(s string) bool { return s == pattern }, nil
	default:
		p := strings.ToLower(pattern)

		return func(s string) bool { return strings.Contains(strings.ToLower(s), p) }, nil
	}
}

func (e FunctionNotFoundError) Error() string {
	if e.Regex {
		return fmt.Sprintf("no function matching regex %q was found in the input", e.Name)
	}

	return fmt.Sprintf("function %q was not found in the input", e.Name)
}
