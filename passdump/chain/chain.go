package chain

import (
	"context"
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/optdiff/passdump/dump"
	"github.com/slowlang/optdiff/passdump/marker"
)

type (
	// Snapshot is the IR of a function after a pass.
	// Index 0 is the baseline, the IR before the first pass.
	//
	// Partial snapshots hold a fragment of the function, a loop usually.
	// They are compared with their own Before fragment in Base
	// and don't replace the function IR for the following passes.
	Snapshot struct {
		Function string
		Pass     string
		Index    int
		Machine  bool

		Lines []string

		Partial bool
		Base    []string
	}

	Chain struct {
		Name  string
		Order int

		Snapshots []Snapshot

		based bool
	}

	StructuralInconsistencyError struct {
		Function string
		Index    int
		Want     int
	}

	PassMismatchError struct {
		Function string
		Before   string
		After    string
	}
)

// Sequence builds and freezes a chain for every parsed function.
// Broken functions are skipped and reported in diags.
func Sequence(ctx context.Context, p *dump.Parsed) (chains []*Chain, diags []error) {
	tr := tlog.SpanFromContext(ctx)

	for _, f := range p.Functions {
		c, err := Build(f)
		if err == nil {
			c.Order = len(chains)
			c.Freeze()

			err = c.Validate()
		}

		if err != nil {
			diags = report(tr, diags, err)
			continue
		}

		if tr.If("dump_chain") {
			for _, s := range c.Snapshots {
				tr.Printw("snapshot", "func", c.Name, "i", s.Index, "pass", s.Pass, "lines", len(s.Lines))
			}
		}

		chains = append(chains, c)
	}

	return chains, diags
}

// Build pairs Before and After dumps of a function into a chain.
func Build(f *dump.Function) (*Chain, error) {
	c := &Chain{Name: f.Name}

	ds := f.Dumps

	for i := 0; i < len(ds); {
		d := ds[i]

		if d.Marker.Kind == marker.After {
			c.pass(nil, d)

			i++

			continue
		}

		if i+1 < len(ds) && ds[i+1].Marker.Kind == marker.After {
			next := ds[i+1]

			if d.Marker.Pass != next.Marker.Pass {
				return nil, PassMismatchError{
					Function: f.Name,
					Before:   d.Marker.Pass,
					After:    next.Marker.Pass,
				}
			}

			c.pass(&d, next)

			i += 2

			continue
		}

		if !d.Partial {
			c.baseline(d.Lines, d.Marker.Machine)
		}

		i++
	}

	return c, nil
}

// Base returns the lines snapshot i is compared with.
// That is the Before fragment for partial snapshots
// and the closest preceding whole snapshot otherwise.
func (c *Chain) Base(i int) []string {
	if c.Snapshots[i].Partial {
		return c.Snapshots[i].Base
	}

	for j := i - 1; j > 0; j-- {
		if !c.Snapshots[j].Partial {
			return c.Snapshots[j].Lines
		}
	}

	return c.Snapshots[0].Lines
}

// Freeze clips snapshot slices so appending to them never touches shared memory.
func (c *Chain) Freeze() {
	c.Snapshots = c.Snapshots[:len(c.Snapshots):len(c.Snapshots)]

	for i := range c.Snapshots {
		l := c.Snapshots[i].Lines
		c.Snapshots[i].Lines = l[:len(l):len(l)]

		b := c.Snapshots[i].Base
		c.Snapshots[i].Base = b[:len(b):len(b)]
	}
}

// Validate checks snapshots are numbered 0, 1, 2, ... and belong to the chain.
func (c *Chain) Validate() error {
	for i, s := range c.Snapshots {
		if s.Index != i || s.Function != c.Name {
			return StructuralInconsistencyError{
				Function: c.Name,
				Index:    s.Index,
				Want:     i,
			}
		}
	}

	return nil
}

// Passes is the number of snapshots taken after a pass.
func (c *Chain) Passes() int {
	if len(c.Snapshots) == 0 {
		return 0
	}

	return len(c.Snapshots) - 1
}

func (c *Chain) pass(before *dump.Dump, after dump.Dump) {
	if after.Partial {
		c.reserve()

		var base []string
		if before != nil {
			base = before.Lines
		}

		c.add(after, base)

		return
	}

	if before != nil {
		c.baseline(before.Lines, before.Marker.Machine)
	} else {
		c.baseline(nil, after.Marker.Machine)
	}

	c.add(after, nil)
}

// baseline sets snapshot 0 from the first whole dump.
// Partial dumps seen before that only reserve its place.
func (c *Chain) baseline(lines []string, machine bool) {
	if c.based {
		return
	}

	c.reserve()

	c.Snapshots[0].Lines = lines
	c.Snapshots[0].Machine = machine
	c.based = true
}

func (c *Chain) reserve() {
	if len(c.Snapshots) != 0 {
		return
	}

	c.Snapshots = append(c.Snapshots, Snapshot{Function: c.Name})
}

func (c *Chain) add(d dump.Dump, base []string) {
	c.Snapshots = append(c.Snapshots, Snapshot{
		Function: c.Name,
		Pass:     d.Marker.Pass,
		Index:    len(c.Snapshots),
		Machine:  d.Marker.Machine,
		Lines:    d.Lines,
		Partial:  d.Partial,
		Base:     base,
	})
}

func report(tr tlog.Span, diags []error, err error) []error {
	tr.Printw("skip function", "err", err, "from", loc.Caller(1))

	return append(diags, err)
}

func (e StructuralInconsistencyError) Error() string {
	return fmt.Sprintf("function %v: snapshot %d at position %d", e.Function, e.Index, e.Want)
}

func (e PassMismatchError) Error() string {
	return fmt.Sprintf("function %v: consecutive pass headers do not match: before %q, after %q", e.Function, e.Before, e.After)
}
