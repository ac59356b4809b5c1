package textdiff

import "github.com/slowlang/optdiff/passdump/set"

type (
	// Script is an edit script as two sets of changed lines:
	// Deleted lines of a and Inserted lines of b.
	// All the other lines are common and appear in the same order.
	Script struct {
		Deleted  set.Bitmap
		Inserted set.Bitmap

		N, M int
	}
)

// Lines computes the minimal edit script from a to b.
// Lines are compared exactly. On ties a deletion is taken before an insertion,
// so the result only depends on the input.
//
// Memory is linear in len(a)+len(b): the middle snake of the Myers algorithm
// splits the problem and both halves are solved recursively.
func Lines(a, b []string) Script {
	s := Script{
		Deleted:  set.MakeBitmap(len(a)),
		Inserted: set.MakeBitmap(len(b)),
		N:        len(a),
		M:        len(b),
	}

	ids := make(map[string]int, len(a))
	x := intern(ids, a)
	y := intern(ids, b)

	s.compare(x, y, 0, 0)

	return s
}

// Changed reports whether the script has any insertion or deletion.
func (s *Script) Changed() bool {
	return s.Deleted.Size() != 0 || s.Inserted.Size() != 0
}

// compare diffs x and y, which start at a and b in the whole inputs.
func (s *Script) compare(x, y []int, a, b int) {
	pre := 0
	for pre < len(x) && pre < len(y) && x[pre] == y[pre] {
		pre++
	}

	x, y = x[pre:], y[pre:]
	a += pre
	b += pre

	suf := 0
	for suf < len(x) && suf < len(y) && x[len(x)-1-suf] == y[len(y)-1-suf] {
		suf++
	}

	x, y = x[:len(x)-suf], y[:len(y)-suf]

	if len(x) == 0 || len(y) == 0 {
		s.Deleted.FillSet(a, a+len(x))
		s.Inserted.FillSet(b, b+len(y))

		return
	}

	i, j, ok := bisect(x, y)
	if !ok {
		s.Deleted.FillSet(a, a+len(x))
		s.Inserted.FillSet(b, b+len(y))

		return
	}

	s.compare(x[:i], y[:j], a, b)
	s.compare(x[i:], y[j:], a+i, b+j)
}

// bisect finds the middle snake of the shortest edit path
// and returns the point splitting the path in two.
// ok is false if x and y have nothing in common.
func bisect(x, y []int) (i, j int, ok bool) {
	n, m := len(x), len(y)

	maxd := (n + m + 1) / 2
	off := maxd
	size := 2*maxd + 2

	fw := make([]int, size)
	bw := make([]int, size)

	for k := range fw {
		fw[k] = -1
		bw[k] = -1
	}

	fw[off+1] = 0
	bw[off+1] = 0

	delta := n - m

	// Paths of odd delta meet while going forward, of even delta going backward.
	front := delta%2 != 0

	// Diagonals running off the grid are not walked again.
	var fstart, fend, bstart, bend int

	for d := 0; d < maxd; d++ {
		for k := -d + fstart; k <= d-fend; k += 2 {
			ko := off + k

			var x1 int
			if k == -d || k != d && fw[ko-1] < fw[ko+1] {
				x1 = fw[ko+1]
			} else {
				x1 = fw[ko-1] + 1
			}

			y1 := x1 - k

			for x1 < n && y1 < m && x[x1] == y[y1] {
				x1++
				y1++
			}

			fw[ko] = x1

			switch {
			case x1 > n:
				fend += 2
			case y1 > m:
				fstart += 2
			case front:
				bo := off + delta - k
				if bo < 0 || bo >= size || bw[bo] == -1 {
					break
				}

				if x1 >= n-bw[bo] {
					return x1, y1, true
				}
			}
		}

		for k := -d + bstart; k <= d-bend; k += 2 {
			ko := off + k

			var x2 int
			if k == -d || k != d && bw[ko-1] < bw[ko+1] {
				x2 = bw[ko+1]
			} else {
				x2 = bw[ko-1] + 1
			}

			y2 := x2 - k

			for x2 < n && y2 < m && x[n-x2-1] == y[m-y2-1] {
				x2++
				y2++
			}

			bw[ko] = x2

			switch {
			case x2 > n:
				bend += 2
			case y2 > m:
				bstart += 2
			case !front:
				fo := off + delta - k
				if fo < 0 || fo >= size || fw[fo] == -1 {
					break
				}

				x1 := fw[fo]
				y1 := x1 - (fo - off)

				if x1 >= n-x2 {
					return x1, y1, true
				}
			}
		}
	}

	return 0, 0, false
}

func intern(ids map[string]int, lines []string) []int {
	r := make([]int, len(lines))

	for i, l := range lines {
		id, ok := ids[l]
		if !ok {
			id = len(ids)
			ids[l] = id
		}

		r[i] = id
	}

	return r
}
