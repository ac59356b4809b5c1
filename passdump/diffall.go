package passdump

import (
	"context"
	"runtime"
	"sync"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/slowlang/optdiff/passdump/chain"
	"github.com/slowlang/optdiff/passdump/textdiff"
)

type (
	chainDiffs struct {
		order int
		diffs []textdiff.PassDiff
	}
)

// diffChains diffs chains concurrently.
// Results are merged back in chain order whatever order workers finish in.
func diffChains(ctx context.Context, chains []*chain.Chain, context, jobs int) (_ []textdiff.PassDiff, err error) {
	tr := tlog.SpanFromContext(ctx)

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	if jobs > len(chains) {
		jobs = len(chains)
	}

	work := make(chan *chain.Chain)
	results := make(chan chainDiffs, jobs)

	var wg sync.WaitGroup

	for i := 0; i < jobs; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for c := range work {
				results <- chainDiffs{
					order: c.Order,
					diffs: textdiff.DiffChain(c, context),
				}
			}
		}()
	}

	go func() {
		defer close(work)

		for _, c := range chains {
			select {
			case work <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := heap.Heap[chainDiffs]{Less: chainDiffsLess}
	next := 0

	var out []textdiff.PassDiff

	for r := range results {
		pending.Push(r)

		for pending.Len() != 0 {
			r := pending.Pop()

			if r.order != next {
				pending.Push(r)
				break
			}

			tr.V("chain_diffs").Printw("chain diffed", "order", r.order, "diffs", len(r.diffs))

			if tr.If("dump_hunks") {
				for _, d := range r.diffs {
					for _, h := range d.Hunks {
						tr.Printw("hunk", "func", d.Function, "i", d.Index, "hunk", h.Header())
					}
				}
			}

			out = append(out, r.diffs...)
			next++
		}
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func chainDiffsLess(d []chainDiffs, i, j int) bool {
	return d[i].order < d[j].order
}
