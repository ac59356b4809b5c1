package marker

import (
	"regexp"
	"strings"
)

type (
	Kind  int
	Class int

	// Marker is a recognized pass boundary header.
	Marker struct {
		Kind Kind

		// Pass is the header text after "IR Dump Before " or "IR Dump After ".
		Pass string

		// Function is the scope of "(function: F)" or "(loop: %x)" headers,
		// or the F of a pass name ending with " on F".
		Function string

		// Scoped is set if Function came from the scope suffix.
		Scoped bool

		Machine     bool
		Loop        bool
		Invalidated bool
	}
)

const (
	Before Kind = iota
	After
)

const (
	ContentLine Class = iota
	ModuleMarker
	FunctionMarker
)

const (
	beforePrefix = "IR Dump Before "
	afterPrefix  = "IR Dump After "

	invalidatedSuffix = " (invalidated)"
)

var (
	irHeader      = regexp.MustCompile(`^;?\s?\*{3} (.+) \*{3}(?:\s+\((function|loop): (%?[\w$.]+)\))?(?:;.+)?$`)
	machineHeader = regexp.MustCompile(`^# \*{3} (.+) \*{3}:$`)

	// [module], (scc, members), Loop at depth... and %values don't name a function.
	onFunction = regexp.MustCompile(` on ([\w$.-]+)$`)
)

// Classify tells whether line is a pass boundary and parses it.
// Lines which look like a header but have no pass name are ContentLine.
func Classify(line string) (Class, Marker) {
	if !IsHeaderPrefix(line) {
		return ContentLine, Marker{}
	}

	var m Marker
	var header string

	if sub := machineHeader.FindStringSubmatch(line); sub != nil {
		header = sub[1]
		m.Machine = true
	} else if sub := irHeader.FindStringSubmatch(line); sub != nil {
		header = sub[1]

		switch sub[2] {
		case "function":
			m.Function = sub[3]
			m.Scoped = true
		case "loop":
			m.Function = sub[3]
			m.Scoped = true
			m.Loop = true
		}
	} else {
		return ContentLine, Marker{}
	}

	switch {
	case strings.HasPrefix(header, beforePrefix):
		m.Kind = Before
		m.Pass = header[len(beforePrefix):]
	case strings.HasPrefix(header, afterPrefix):
		m.Kind = After
		m.Pass = header[len(afterPrefix):]
	default:
		return ContentLine, Marker{}
	}

	if m.Kind == After && strings.HasSuffix(m.Pass, invalidatedSuffix) {
		m.Pass = m.Pass[:len(m.Pass)-len(invalidatedSuffix)]
		m.Invalidated = true
	}

	if m.Pass == "" {
		return ContentLine, Marker{}
	}

	if m.Function == "" {
		if sub := onFunction.FindStringSubmatch(m.Pass); sub != nil {
			m.Function = sub[1]
		}
	}

	if m.Function != "" {
		return FunctionMarker, m
	}

	return ModuleMarker, m
}

// IsHeaderPrefix reports whether line starts with one of the header sentinels.
func IsHeaderPrefix(line string) bool {
	return strings.HasPrefix(line, "*** ") ||
		strings.HasPrefix(line, "; *** ") ||
		strings.HasPrefix(line, "# *** ")
}

// IsMalformed reports lines that start like a header but can't be parsed as one.
func IsMalformed(line string) bool {
	if !IsHeaderPrefix(line) {
		return false
	}

	c, _ := Classify(line)

	return c == ContentLine
}

func (k Kind) String() string {
	if k == After {
		return "After"
	}

	return "Before"
}

func (c Class) String() string {
	switch c {
	case ModuleMarker:
		return "module"
	case FunctionMarker:
		return "function"
	default:
		return "content"
	}
}

// Header formats the marker back into the text it was recognized from.
// Scope suffixes are not restored.
func (m Marker) Header() string {
	p := beforePrefix
	if m.Kind == After {
		p = afterPrefix
	}

	name := m.Pass
	if m.Invalidated {
		name += invalidatedSuffix
	}

	if m.Machine {
		return "# *** " + p + name + " ***:"
	}

	return "*** " + p + name + " ***"
}
