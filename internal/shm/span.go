package shm

// Span selects a half-open range of rows. Negative bounds count from the
// end, missing bounds mean the start or the end of the matrix.
type Span struct {
	from    int
	to      int
	hasFrom bool
	hasTo   bool
}

// All selects every row.
func All() Span {
	return Span{}
}

// From selects rows [i:].
func From(i int) Span {
	return Span{from: i, hasFrom: true}
}

// To selects rows [:j].
func To(j int) Span {
	return Span{to: j, hasTo: true}
}

// Between selects rows [i:j].
func Between(i, j int) Span {
	return Span{from: i, to: j, hasFrom: true, hasTo: true}
}

// Last selects the newest n rows.
func Last(n int) Span {
	if n <= 0 {
		return Between(0, 0)
	}
	return From(-n)
}

// Bounds resolves the span against n rows. The result always satisfies
// 0 <= lo <= hi <= n.
func (s Span) Bounds(n int) (lo, hi int) {
	lo, hi = 0, n
	if s.hasFrom {
		lo = clampIndex(s.from, n)
	}
	if s.hasTo {
		hi = clampIndex(s.to, n)
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
