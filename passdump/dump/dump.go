package dump

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/optdiff/passdump/irfilter"
	"github.com/slowlang/optdiff/passdump/marker"
)

type (
	Options struct {
		// FullModule is for dumps printed with -print-module-scope,
		// where every dump is the whole module.
		FullModule bool

		// Filter is applied to the text after the prefix. Nil disables it.
		Filter *irfilter.Filter
	}

	// Dump is a marker and the body lines up to the next marker.
	Dump struct {
		Marker marker.Marker
		Lines  []string

		// Partial is set for a fragment of a function, such as a loop.
		// It says nothing about the rest of the function.
		Partial bool
	}

	// Function is the ordered list of dumps concerning one function.
	Function struct {
		Name  string
		Dumps []Dump
	}

	Parsed struct {
		// Prefix is the text before the first marker.
		Prefix string

		Functions []*Function

		Markers   int
		Malformed int

		// Unattributed counts dumps with no function definition
		// and no function in the marker.
		Unattributed     int
		UnattributedPass string

		index map[string]int
	}

	UnattributedError struct {
		Count int
		Pass  string
	}

	unit struct {
		name  string
		lines []string
		loop  bool
	}
)

const (
	FullModuleName = "<Full Module>"
	LoopName       = "<loop>"
)

func Parse(ctx context.Context, text string, opts Options) (p *Parsed, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "dump: parse", "size", len(text), "full_module", opts.FullModule)
	defer tr.Finish("err", &err)

	off := PrefixEnd(text)

	p = &Parsed{
		Prefix: text[:off],
		index:  map[string]int{},
	}

	body := text[off:]

	if opts.Filter != nil {
		body = opts.Filter.Apply(body)

		tr.V("filter").Printw("filtered", "size", len(text)-off, "filtered", len(body))
	}

	dumps := p.breakdown(ctx, body)

	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "breakdown")
	}

	if opts.FullModule {
		p.associate(dumps)
	} else {
		p.demultiplex(tr, dumps)
	}

	tr.Printw("parsed", "markers", p.Markers, "dumps", len(dumps), "functions", len(p.Functions), "malformed", p.Malformed, "unattributed", p.Unattributed)

	if tr.If("dump_functions") {
		for _, f := range p.Functions {
			tr.Printw("function", "name", f.Name, "dumps", len(f.Dumps))
		}
	}

	return p, nil
}

// PrefixEnd returns the offset of the first marker line or len(text) if there is none.
func PrefixEnd(text string) int {
	pos := 0

	for pos < len(text) {
		nl := strings.IndexByte(text[pos:], '\n')
		if nl < 0 {
			nl = len(text) - pos
		}

		line := strings.TrimSuffix(text[pos:pos+nl], "\r")

		if c, _ := marker.Classify(line); c != marker.ContentLine {
			return pos
		}

		pos += nl + 1
	}

	return len(text)
}

// Function returns the function by name or nil.
func (p *Parsed) Function(name string) *Function {
	i, ok := p.index[name]
	if !ok {
		return nil
	}

	return p.Functions[i]
}

func (p *Parsed) function(name string) *Function {
	if i, ok := p.index[name]; ok {
		return p.Functions[i]
	}

	f := &Function{Name: name}

	p.index[name] = len(p.Functions)
	p.Functions = append(p.Functions, f)

	return f
}

func (p *Parsed) breakdown(ctx context.Context, body string) (dumps []Dump) {
	tr := tlog.SpanFromContext(ctx)

	var cur *Dump
	lastBlank := false

	for _, line := range Lines(body) {
		c, m := marker.Classify(line)

		if c != marker.ContentLine {
			if cur != nil {
				dumps = append(dumps, *cur)
			}

			p.Markers++
			cur = &Dump{Marker: m}
			lastBlank = true

			continue
		}

		if marker.IsHeaderPrefix(line) {
			p.Malformed++

			tr.V("malformed").Printw("malformed marker", "line", line)
		}

		if cur == nil {
			continue
		}

		blank := marker.IsBlank(line)

		if !blank || !lastBlank {
			cur.Lines = append(cur.Lines, line)
		}

		lastBlank = blank
	}

	if cur != nil {
		dumps = append(dumps, *cur)
	}

	return dumps
}

func (p *Parsed) demultiplex(tr tlog.Span, dumps []Dump) {
	prev := ""

	for _, d := range dumps {
		units := split(d.Lines)

		if len(units) == 0 && d.Marker.Function != "" && !d.Marker.Loop {
			units = []unit{{name: d.Marker.Function, lines: trimBlank(d.Lines)}}
		}

		if len(units) == 0 {
			if p.Unattributed == 0 {
				p.UnattributedPass = d.Marker.Pass
			}

			p.Unattributed++

			tr.V("unattributed").Printw("dump of no function", "kind", d.Marker.Kind, "pass", d.Marker.Pass, "lines", len(d.Lines))

			continue
		}

		for _, u := range units {
			name := u.name

			if u.loop {
				name = prev
				if name == "" {
					name = LoopName
				}
			}

			f := p.function(name)
			f.Dumps = append(f.Dumps, Dump{
				Marker:  d.Marker,
				Lines:   u.lines,
				Partial: u.loop,
			})

			if !u.loop {
				prev = name
			}
		}
	}
}

func (p *Parsed) associate(dumps []Dump) {
	for _, d := range dumps {
		if d.Marker.Scoped && !strings.HasPrefix(d.Marker.Function, "%") {
			p.function(d.Marker.Function)
		}
	}

	p.function(FullModuleName)

	prev := ""

	for _, d := range dumps {
		if !d.Marker.Scoped {
			for _, f := range p.Functions {
				f.Dumps = append(f.Dumps, d)
			}

			prev = ""

			continue
		}

		name := d.Marker.Function
		if strings.HasPrefix(name, "%") {
			name = prev
			if name == "" {
				name = LoopName
			}
		}

		m := d.Marker
		m.Function = name
		m.Pass += " (" + name + ")"

		f := p.function(name)
		f.Dumps = append(f.Dumps, Dump{
			Marker: m,
			Lines:  d.Lines,
		})

		prev = name
	}
}

// split demultiplexes a dump body into IR units.
// Lines outside of any function are dropped.
func split(lines []string) (units []unit) {
	index := map[string]int{}

	var cur *unit
	machine := false

	flush := func() {
		if cur == nil {
			return
		}

		if i, ok := index[cur.name]; ok && !cur.loop {
			units[i] = *cur
		} else {
			index[cur.name] = len(units)
			units = append(units, *cur)
		}

		cur = nil
	}

	for _, line := range lines {
		if name, mach, ok := marker.FunctionStart(line); ok {
			flush()

			cur = &unit{name: name, lines: []string{line}}
			machine = mach

			continue
		}

		if cur == nil && marker.LoopStart(line) {
			cur = &unit{loop: true, lines: []string{line}}

			continue
		}

		if cur == nil {
			continue
		}

		cur.lines = append(cur.lines, line)

		if !cur.loop && marker.FunctionEnd(line, machine) {
			flush()
		}
	}

	flush()

	return units
}

func trimBlank(lines []string) []string {
	for len(lines) != 0 && marker.IsBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}

	return lines
}

func (e UnattributedError) Error() string {
	return fmt.Sprintf("%d dumps not attributed to any function, first after pass %q", e.Count, e.Pass)
}

// Lines splits text into lines without line terminators.
func Lines(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.TrimSuffix(text, "\n")

	lines := strings.Split(text, "\n")

	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	return lines
}
