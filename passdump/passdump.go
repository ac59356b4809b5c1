package passdump

import (
	"context"
	"os"
	"slices"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/optdiff/passdump/chain"
	"github.com/slowlang/optdiff/passdump/demangle"
	"github.com/slowlang/optdiff/passdump/dump"
	"github.com/slowlang/optdiff/passdump/irfilter"
	"github.com/slowlang/optdiff/passdump/marker"
	"github.com/slowlang/optdiff/passdump/render"
	"github.com/slowlang/optdiff/passdump/textdiff"
)

type (
	Options struct {
		render.Selection
		Style render.Style

		// Context is the number of unchanged lines around each change.
		Context int

		FullModule bool

		// Filter removes IR noise before parsing. Nil disables filtering.
		Filter *irfilter.Options

		// Jobs is the number of diff workers. Zero means GOMAXPROCS.
		Jobs int
	}

	Result struct {
		// Prefix is the input text before the first marker.
		Prefix string

		Chains []*chain.Chain

		// All is every diff of every chain, Diffs are the selected ones.
		All   []textdiff.PassDiff
		Diffs []textdiff.PassDiff

		// Diags are recovered problems, such as skipped functions
		// or dumps attributed to none.
		Diags []error

		Markers      int
		Malformed    int
		Unattributed int
	}
)

var (
	ErrEmptyInput  = errors.New("no pass markers found")
	ErrNoFunctions = errors.New("no function dumps found")
)

func DefaultOptions() Options {
	f := irfilter.Default

	return Options{
		Context: textdiff.DefaultContext,
		Filter:  &f,
	}
}

func ProcessFile(ctx context.Context, name string, opts Options) (*Result, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Process(ctx, string(text), opts)
}

// Process parses the dump and diffs every function's consecutive snapshots.
// Only a bad selection or cancelled context is an error,
// everything else is reported in Result.Diags.
func Process(ctx context.Context, text string, opts Options) (r *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "passdump: process", "size", len(text))
	defer tr.Finish("err", &err)

	dopts := dump.Options{FullModule: opts.FullModule}

	if opts.Filter != nil {
		dopts.Filter = irfilter.New(*opts.Filter)
	}

	p, err := dump.Parse(ctx, text, dopts)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	r = &Result{
		Prefix:       p.Prefix,
		Markers:      p.Markers,
		Malformed:    p.Malformed,
		Unattributed: p.Unattributed,
	}

	if p.Markers == 0 {
		r.Diags = append(r.Diags, ErrEmptyInput)

		return r, nil
	}

	if p.Unattributed != 0 {
		r.Diags = append(r.Diags, dump.UnattributedError{Count: p.Unattributed, Pass: p.UnattributedPass})
	}

	chains, diags := chain.Sequence(ctx, p)

	r.Chains = chains
	r.Diags = append(r.Diags, diags...)

	if len(r.Chains) == 0 {
		r.Diags = append(r.Diags, ErrNoFunctions)
	}

	r.All, err = diffChains(ctx, r.Chains, opts.Context, opts.Jobs)
	if err != nil {
		return nil, errors.Wrap(err, "diff")
	}

	r.Diffs, err = render.Filter(r.All, opts.Selection)
	if err != nil {
		return nil, errors.Wrap(err, "select")
	}

	tr.Printw("diffed", "chains", len(r.Chains), "diffs", len(r.All), "selected", len(r.Diffs), "diags", len(r.Diags))

	return r, nil
}

// Diff runs Process and renders the selected diffs.
func Diff(ctx context.Context, text string, opts Options) ([]byte, *Result, error) {
	r, err := Process(ctx, text, opts)
	if err != nil {
		return nil, nil, err
	}

	out, err := render.Append(nil, r.Diffs, opts.Style)
	if err != nil {
		return nil, r, errors.Wrap(err, "render")
	}

	return out, r, nil
}

// Functions lists the names of all functions defined anywhere in the dump, sorted.
func Functions(text string, demangled bool) []string {
	seen := map[string]struct{}{}
	var names []string

	for _, line := range dump.Lines(text) {
		name, _, ok := marker.FunctionStart(line)
		if !ok {
			continue
		}

		if demangled {
			name = demangle.Name(name)
		}

		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
