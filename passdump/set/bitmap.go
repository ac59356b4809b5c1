package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a set of line numbers.
	Bitmap struct {
		b []uint64
	}
)

func MakeBitmap(size int) Bitmap {
	return Bitmap{
		b: make([]uint64, (size+63)/64),
	}
}

func (s *Bitmap) Set(i int) {
	w, j := i/64, i%64

	for w >= len(s.b) {
		s.b = append(s.b, 0)
	}

	s.b[w] |= 1 << j
}

func (s *Bitmap) IsSet(i int) bool {
	w, j := i/64, i%64

	if w >= len(s.b) {
		return false
	}

	return s.b[w]&(1<<j) != 0
}

// FillSet sets [l, r).
func (s *Bitmap) FillSet(l, r int) {
	for i := l; i < r; i++ {
		s.Set(i)
	}
}

func (s *Bitmap) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, w := range s.b {
		r += bits.OnesCount64(w)
	}

	return r
}

// Range calls f for set elements in increasing order until f returns false.
func (s *Bitmap) Range(f func(i int) bool) {
	for w, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)

			if !f(w*64 + j) {
				return
			}

			x &^= 1 << j
		}
	}
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(i int) bool {
		b = e.AppendInt(b, i)

		return true
	})

	b = e.AppendBreak(b)

	return b
}
