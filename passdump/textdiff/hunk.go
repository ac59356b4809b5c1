package textdiff

import (
	"fmt"

	"github.com/slowlang/optdiff/passdump/chain"
)

type (
	Kind int

	Line struct {
		Kind Kind
		Text string
	}

	// Hunk is a contiguous region of change with context.
	// Starts are 1-based. An empty range starts at the line preceding it.
	Hunk struct {
		BeforeStart int
		BeforeCount int
		AfterStart  int
		AfterCount  int

		Lines []Line
	}

	PassDiff struct {
		Function string
		Pass     string
		Index    int
		Machine  bool

		Hunks   []Hunk
		Changed bool
	}

	HunkMismatchError struct {
		Hunk int
		Line int
		Want string
		Got  string
	}

	op struct {
		Line
		a, b int
	}
)

const (
	Context Kind = iota
	Added
	Removed
)

const DefaultContext = 3

// Diff compares two adjacent snapshots of a chain.
func Diff(before, after chain.Snapshot, context int) PassDiff {
	s := Lines(before.Lines, after.Lines)

	hunks := Hunks(before.Lines, after.Lines, s, context)

	return PassDiff{
		Function: after.Function,
		Pass:     after.Pass,
		Index:    after.Index,
		Machine:  after.Machine,
		Hunks:    hunks,
		Changed:  len(hunks) != 0,
	}
}

// DiffChain diffs every snapshot against its base, see chain.Chain.Base.
func DiffChain(c *chain.Chain, context int) []PassDiff {
	if len(c.Snapshots) < 2 {
		return nil
	}

	r := make([]PassDiff, 0, len(c.Snapshots)-1)

	for i := 1; i < len(c.Snapshots); i++ {
		base := chain.Snapshot{Lines: c.Base(i)}

		r = append(r, Diff(base, c.Snapshots[i], context))
	}

	return r
}

// Hunks groups script changes into hunks with context lines around.
// Hunks with overlapping or adjacent context are merged.
func Hunks(a, b []string, s Script, context int) (hunks []Hunk) {
	if context < 0 {
		context = 0
	}

	ops := walk(a, b, s)

	for i := 0; i < len(ops); {
		for i < len(ops) && ops[i].Kind == Context {
			i++
		}

		if i == len(ops) {
			break
		}

		st := i - context
		if st < 0 {
			st = 0
		}

		end := i

		for {
			for end < len(ops) && ops[end].Kind != Context {
				end++
			}

			next := end
			for next < len(ops) && ops[next].Kind == Context {
				next++
			}

			if next == len(ops) || next-end > 2*context {
				break
			}

			end = next
		}

		stop := end + context
		if stop > len(ops) {
			stop = len(ops)
		}

		hunks = append(hunks, makeHunk(ops[st:stop]))

		i = stop
	}

	return hunks
}

// Apply reconstructs the after lines from the before lines and hunks.
func Apply(before []string, hunks []Hunk) ([]string, error) {
	out := make([]string, 0, len(before))
	pos := 0

	for hi, h := range hunks {
		st := h.BeforeStart - 1
		if h.BeforeCount == 0 {
			st = h.BeforeStart
		}

		if st < pos || st > len(before) {
			return nil, HunkMismatchError{Hunk: hi, Line: h.BeforeStart}
		}

		out = append(out, before[pos:st]...)
		pos = st

		for _, l := range h.Lines {
			if l.Kind == Added {
				out = append(out, l.Text)
				continue
			}

			if pos >= len(before) {
				return nil, HunkMismatchError{Hunk: hi, Line: pos + 1, Want: l.Text}
			}

			if before[pos] != l.Text {
				return nil, HunkMismatchError{Hunk: hi, Line: pos + 1, Want: l.Text, Got: before[pos]}
			}

			if l.Kind == Context {
				out = append(out, l.Text)
			}

			pos++
		}
	}

	out = append(out, before[pos:]...)

	return out, nil
}

func walk(a, b []string, s Script) (ops []op) {
	i, j := 0, 0

	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && s.Deleted.IsSet(i):
			ops = append(ops, op{Line: Line{Kind: Removed, Text: a[i]}, a: i, b: j})
			i++
		case j < len(b) && s.Inserted.IsSet(j):
			ops = append(ops, op{Line: Line{Kind: Added, Text: b[j]}, a: i, b: j})
			j++
		default:
			ops = append(ops, op{Line: Line{Kind: Context, Text: a[i]}, a: i, b: j})
			i++
			j++
		}
	}

	return ops
}

func makeHunk(ops []op) (h Hunk) {
	h.Lines = make([]Line, len(ops))

	for i, o := range ops {
		h.Lines[i] = o.Line

		switch o.Kind {
		case Context:
			h.BeforeCount++
			h.AfterCount++
		case Removed:
			h.BeforeCount++
		case Added:
			h.AfterCount++
		}
	}

	h.BeforeStart = ops[0].a
	if h.BeforeCount != 0 {
		h.BeforeStart++
	}

	h.AfterStart = ops[0].b
	if h.AfterCount != 0 {
		h.AfterStart++
	}

	return h
}

func (k Kind) Prefix() byte {
	switch k {
	case Added:
		return '+'
	case Removed:
		return '-'
	default:
		return ' '
	}
}

func (l Line) String() string {
	return string(l.Kind.Prefix()) + l.Text
}

func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.BeforeStart, h.BeforeCount, h.AfterStart, h.AfterCount)
}

func (e HunkMismatchError) Error() string {
	if e.Want == "" && e.Got == "" {
		return fmt.Sprintf("hunk %d: bad position %d", e.Hunk, e.Line)
	}

	return fmt.Sprintf("hunk %d: line %d: expected %q, got %q", e.Hunk, e.Line, e.Want, e.Got)
}
