package marker

import "strings"

type Spaces uint64

const (
	defineStart  = "define "
	machineStart = "# Machine code for function "
	machineEnd   = "# End machine code for function "
	loopStart    = "; Preheader:"
)

var Blank = NewSpaces(' ', '\t', '\r', '\n', '\v', '\f')

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(line string, st int) (i int) {
	i = st

	for i < len(line) && line[i] < 64 && s&(1<<line[i]) != 0 {
		i++
	}

	return
}

func (s Spaces) Trim(line string) string {
	st := s.Skip(line, 0)
	end := len(line)

	for end > st && line[end-1] < 64 && s&(1<<line[end-1]) != 0 {
		end--
	}

	return line[st:end]
}

func IsBlank(line string) bool {
	return Blank.Skip(line, 0) == len(line)
}

// FunctionStart recognizes IR unit headers inside a dump body:
//
//	define internal void @foo(i32 %x) {
//	# Machine code for function foo: IsSSA, TracksLiveness
func FunctionStart(line string) (name string, machine, ok bool) {
	switch {
	case strings.HasPrefix(line, defineStart):
		at := strings.IndexByte(line, '@')
		if at < 0 {
			return "", false, false
		}

		rest := line[at+1:]

		if strings.HasPrefix(rest, `"`) {
			q := strings.IndexByte(rest[1:], '"')
			if q < 0 {
				return "", false, false
			}

			return rest[:q+2], false, true
		}

		p := strings.IndexByte(rest, '(')
		if p <= 0 {
			return "", false, false
		}

		return rest[:p], false, true
	case strings.HasPrefix(line, machineStart):
		rest := line[len(machineStart):]

		p := strings.IndexByte(rest, ':')
		if p <= 0 {
			return "", true, false
		}

		return rest[:p], true, true
	}

	return "", false, false
}

// FunctionEnd reports whether line closes the unit opened by FunctionStart.
func FunctionEnd(line string, machine bool) bool {
	line = Blank.Trim(line)

	if !machine {
		return line == "}"
	}

	return strings.HasPrefix(line, machineEnd) && strings.HasSuffix(line, ".") && len(line) > len(machineEnd)+1
}

// LoopStart recognizes the first line of a loop pass dump.
func LoopStart(line string) bool {
	return strings.HasPrefix(line, loopStart)
}
