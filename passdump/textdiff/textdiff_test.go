package textdiff

import (
	"fmt"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/optdiff/passdump/chain"
)

func gen(n int) []string {
	r := make([]string, n)

	for i := range r {
		r[i] = fmt.Sprintf("l%d", i+1)
	}

	return r
}

func insert(l []string, at int, x ...string) []string {
	r := append([]string{}, l[:at]...)
	r = append(r, x...)
	return append(r, l[at:]...)
}

func TestSelf(t *testing.T) {
	a := gen(10)

	d := Diff(chain.Snapshot{Lines: a}, chain.Snapshot{Function: "foo", Pass: "X", Index: 1, Lines: a}, DefaultContext)

	assert.False(t, d.Changed)
	assert.Empty(t, d.Hunks)
	assert.Equal(t, "foo", d.Function)
	assert.Equal(t, "X", d.Pass)
	assert.Equal(t, 1, d.Index)

	s := Lines(a, a)
	assert.False(t, s.Changed())
}

func TestInsertOne(t *testing.T) {
	a := gen(10)
	b := insert(a, 5, "new")

	hunks := Hunks(a, b, Lines(a, b), 3)
	require.Len(t, hunks, 1)

	h := hunks[0]
	assert.Equal(t, "@@ -3,6 +3,7 @@", h.Header())
	assert.Equal(t, []Line{
		{Context, "l3"},
		{Context, "l4"},
		{Context, "l5"},
		{Added, "new"},
		{Context, "l6"},
		{Context, "l7"},
		{Context, "l8"},
	}, h.Lines)
}

func TestReplaceOrder(t *testing.T) {
	a := []string{"a", "b", "c"}
	b := []string{"a", "x", "c"}

	hunks := Hunks(a, b, Lines(a, b), 3)
	require.Len(t, hunks, 1)

	assert.Equal(t, Hunk{
		BeforeStart: 1,
		BeforeCount: 3,
		AfterStart:  1,
		AfterCount:  3,
		Lines: []Line{
			{Context, "a"},
			{Removed, "b"},
			{Added, "x"},
			{Context, "c"},
		},
	}, hunks[0])
}

func TestEmptySides(t *testing.T) {
	hunks := Hunks(nil, []string{"x"}, Lines(nil, []string{"x"}), 3)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -0,0 +1,1 @@", hunks[0].Header())

	hunks = Hunks([]string{"x", "y"}, nil, Lines([]string{"x", "y"}, nil), 3)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -1,2 +0,0 @@", hunks[0].Header())

	assert.Empty(t, Hunks(nil, nil, Lines(nil, nil), 3))
}

func TestTrailingWhitespace(t *testing.T) {
	a := []string{"a", "b"}
	b := []string{"a", "b "}

	s := Lines(a, b)
	assert.True(t, s.Changed())
	assert.True(t, s.Deleted.IsSet(1))
	assert.True(t, s.Inserted.IsSet(1))
}

func TestGrouping(t *testing.T) {
	a := gen(20)

	far := append([]string{}, a...)
	far[1] = "x"
	far[17] = "y"

	hunks := Hunks(a, far, Lines(a, far), 3)
	require.Len(t, hunks, 2)
	assert.Equal(t, "@@ -1,5 +1,5 @@", hunks[0].Header())
	assert.Equal(t, "@@ -15,6 +15,6 @@", hunks[1].Header())

	near := append([]string{}, a...)
	near[5] = "x"
	near[11] = "y"

	hunks = Hunks(a, near, Lines(a, near), 3)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -3,13 +3,13 @@", hunks[0].Header())

	hunks = Hunks(a, near, Lines(a, near), 0)
	require.Len(t, hunks, 2)
	assert.Equal(t, "@@ -6,1 +6,1 @@", hunks[0].Header())
	assert.Equal(t, "@@ -12,1 +12,1 @@", hunks[1].Header())
}

func TestGroupingBoundary(t *testing.T) {
	a := gen(20)

	change := func(i, j int) []string {
		b := append([]string{}, a...)
		b[i] = "x"
		b[j] = "y"

		return b
	}

	headers := func(b []string, context int) (r []string) {
		for _, h := range Hunks(a, b, Lines(a, b), context) {
			r = append(r, h.Header())
		}

		return r
	}

	// gap of 2*context unchanged lines merges, one more splits
	assert.Equal(t, []string{"@@ -5,6 +5,6 @@"}, headers(change(5, 8), 1))
	assert.Equal(t, []string{"@@ -5,3 +5,3 @@", "@@ -9,3 +9,3 @@"}, headers(change(5, 9), 1))

	assert.Equal(t, []string{"@@ -3,14 +3,14 @@"}, headers(change(5, 12), 3))
	assert.Equal(t, []string{"@@ -3,7 +3,7 @@", "@@ -11,7 +11,7 @@"}, headers(change(5, 13), 3))
}

func TestApplyMismatch(t *testing.T) {
	a := []string{"a", "b", "c"}
	b := []string{"a", "x", "c"}

	hunks := Hunks(a, b, Lines(a, b), 1)

	_, err := Apply([]string{"a", "z", "c"}, hunks)

	var hm HunkMismatchError
	require.True(t, errors.As(err, &hm))
	assert.Equal(t, 2, hm.Line)
	assert.Equal(t, "b", hm.Want)
	assert.Equal(t, "z", hm.Got)
}

func TestRandomRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for n := 0; n < 300; n++ {
		a := random(rnd, rnd.Intn(30))
		b := random(rnd, rnd.Intn(30))

		s := Lines(a, b)

		assert.Equal(t, len(a)+len(b)-2*lcs(a, b), s.Deleted.Size()+s.Inserted.Size(), "a=%q b=%q", a, b)

		for _, ctx := range []int{0, 1, 3} {
			hunks := Hunks(a, b, s, ctx)

			got, err := Apply(a, hunks)
			require.NoError(t, err)
			assert.Equal(t, len(b), len(got))

			if len(b) != 0 {
				assert.Equal(t, b, got, "a=%q b=%q", a, b)
			}

			assert.Equal(t, hunks, Hunks(a, b, Lines(a, b), ctx))
		}
	}
}

func TestLinesMemory(t *testing.T) {
	const n = 3000

	a := make([]string, n)
	b := make([]string, n)

	for i := range a {
		a[i] = fmt.Sprintf("a%d", i)
		b[i] = fmt.Sprintf("b%d", i)

		if i%100 == 0 {
			a[i] = fmt.Sprintf("c%d", i)
			b[i] = a[i]
		}
	}

	var before, after runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&before)

	s := Lines(a, b)

	runtime.ReadMemStats(&after)

	assert.Equal(t, 2*(n-n/100), s.Deleted.Size()+s.Inserted.Size())
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
}

func TestDiffChainPartial(t *testing.T) {
	c := &chain.Chain{
		Name: "foo",
		Snapshots: []chain.Snapshot{
			{Function: "foo", Lines: []string{"a", "l"}},
			{Function: "foo", Pass: "LoopRotate", Index: 1, Lines: []string{"l"}, Partial: true, Base: []string{"l"}},
			{Function: "foo", Pass: "X", Index: 2, Lines: []string{"a", "l"}},
			{Function: "foo", Pass: "LICM", Index: 3, Lines: []string{"m"}, Partial: true, Base: []string{"l"}},
		},
	}

	ds := DiffChain(c, 3)
	require.Len(t, ds, 3)

	assert.False(t, ds[0].Changed)
	assert.False(t, ds[1].Changed)

	assert.True(t, ds[2].Changed)
	assert.Equal(t, "@@ -1,1 +1,1 @@", ds[2].Hunks[0].Header())
}

func TestDiffChain(t *testing.T) {
	c := &chain.Chain{
		Name: "foo",
		Snapshots: []chain.Snapshot{
			{Function: "foo", Lines: []string{"a"}},
			{Function: "foo", Pass: "X", Index: 1, Lines: []string{"a"}},
			{Function: "foo", Pass: "Y", Index: 2, Lines: []string{"a", "b"}},
		},
	}

	ds := DiffChain(c, 3)
	require.Len(t, ds, 2)

	assert.Equal(t, "X", ds[0].Pass)
	assert.False(t, ds[0].Changed)

	assert.Equal(t, "Y", ds[1].Pass)
	assert.True(t, ds[1].Changed)
	assert.Equal(t, "@@ -1,1 +1,2 @@", ds[1].Hunks[0].Header())

	assert.Nil(t, DiffChain(&chain.Chain{Name: "bar"}, 3))
}

func TestLineString(t *testing.T) {
	assert.Equal(t, "+x", Line{Added, "x"}.String())
	assert.Equal(t, "-x", Line{Removed, "x"}.String())
	assert.Equal(t, " x", Line{Context, "x"}.String())
}

func random(rnd *rand.Rand, n int) []string {
	r := make([]string, n)

	for i := range r {
		r[i] = string(rune('a' + rnd.Intn(4)))
	}

	return r
}

func lcs(a, b []string) int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}

	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	return dp[0][0]
}
