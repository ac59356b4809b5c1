package demangle

import (
	"regexp"

	"github.com/ianlancetaylor/demangle"
)

var symbol = regexp.MustCompile(`\b(?:_Z|_R)[\w$.]+`)

// Name demangles a C++ or Rust symbol. Other names are returned as is.
func Name(name string) string {
	return demangle.Filter(name)
}

// Text demangles every symbol found in text.
func Text(text string) string {
	return symbol.ReplaceAllStringFunc(text, Name)
}
