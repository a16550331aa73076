// Package vector implements the columnar primitives the translator emits:
// projection, fetch joins, mark numbering, grouped position numbering,
// merged union of pre-sorted inputs, set difference, selection and sort
// refinement. Columns are dense int64 arrays addressed by row position.
//
// These are the set-at-a-time building blocks of the emitted program; each
// one is total over its documented preconditions and allocates its result
// fresh, never aliasing an input.
package vector

import "sort"

// Project returns a column of n copies of v.
func Project(n int, v int64) []int64 {
	col := make([]int64, n)
	for i := range col {
		col[i] = v
	}
	return col
}

// Mark returns the column [offset, offset+1, ..., offset+n-1].
func Mark(n int, offset int64) []int64 {
	col := make([]int64, n)
	for i := range col {
		col[i] = offset + int64(i)
	}
	return col
}

// LeftFetchJoin treats every key as a row position into table and fetches
// the positional match: out[i] = table[keys[i]].
func LeftFetchJoin(keys, table []int64) []int64 {
	out := make([]int64, len(keys))
	for i, k := range keys {
		out[i] = table[k]
	}
	return out
}

// Gather fetches rows of col at the given positions.
func Gather(col []int64, positions []int) []int64 {
	out := make([]int64, len(positions))
	for i, p := range positions {
		out[i] = col[p]
	}
	return out
}

// SelectEq returns the row positions where col equals v, in row order.
// This is the ordered selection used for variable lookup and condition
// partitioning.
func SelectEq(col []int64, v int64) []int {
	var pos []int
	for i, x := range col {
		if x == v {
			pos = append(pos, i)
		}
	}
	return pos
}

// MarkGrp assigns a fresh 1-based numbering within each group of equal
// values in grp. grp must be sorted so that equal values are adjacent.
func MarkGrp(grp []int64) []int64 {
	out := make([]int64, len(grp))
	var n int64
	for i, g := range grp {
		if i == 0 || grp[i-1] != g {
			n = 0
		}
		n++
		out[i] = n
	}
	return out
}

// MergedUnion merges two inputs pre-sorted by key into one sorted output
// without a full re-sort. Payload columns ride along positionally: payload
// column j of the result interleaves leftPayload[j] and rightPayload[j] in
// the merged key order. On equal keys left rows come first, which preserves
// left-before-right sequence order.
//
// All left payload columns must have len(leftKey) rows, and likewise for the
// right side. Unsorted keys are a caller bug and panic.
func MergedUnion(leftKey, rightKey []int64, leftPayload, rightPayload [][]int64) ([]int64, [][]int64) {
	if !IsSorted(leftKey) || !IsSorted(rightKey) {
		panic("vector: MergedUnion requires sorted keys")
	}
	total := len(leftKey) + len(rightKey)
	key := make([]int64, 0, total)
	payload := make([][]int64, len(leftPayload))
	for j := range payload {
		payload[j] = make([]int64, 0, total)
	}

	i, j := 0, 0
	for i < len(leftKey) || j < len(rightKey) {
		takeLeft := j >= len(rightKey) || (i < len(leftKey) && leftKey[i] <= rightKey[j])
		if takeLeft {
			key = append(key, leftKey[i])
			for p := range payload {
				payload[p] = append(payload[p], leftPayload[p][i])
			}
			i++
		} else {
			key = append(key, rightKey[j])
			for p := range payload {
				payload[p] = append(payload[p], rightPayload[p][j])
			}
			j++
		}
	}
	return key, payload
}

// KDiff returns the values of a that do not occur in b. Inputs need not be
// sorted; output preserves a's order and keeps the first occurrence of each
// value.
func KDiff(a, b []int64) []int64 {
	drop := make(map[int64]struct{}, len(b))
	for _, v := range b {
		drop[v] = struct{}{}
	}
	var out []int64
	seen := make(map[int64]struct{}, len(a))
	for _, v := range a {
		if _, d := drop[v]; d {
			continue
		}
		if _, s := seen[v]; s {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// UniqueRows deduplicates row tuples across the given parallel columns,
// keeping the first occurrence of each tuple, and returns the surviving row
// positions in row order.
func UniqueRows(cols ...[]int64) []int {
	if len(cols) == 0 {
		return nil
	}
	type key3 [3]int64
	seen := make(map[key3]struct{})
	var pos []int
	for i := 0; i < len(cols[0]); i++ {
		var k key3
		for c := 0; c < len(cols) && c < 3; c++ {
			k[c] = cols[c][i]
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		pos = append(pos, i)
	}
	return pos
}

// SortRefine produces a stable row ordering sorted by the given columns in
// priority order (first column most significant). It returns row positions;
// use Gather to materialize reordered columns.
func SortRefine(cols ...[]int64) []int {
	if len(cols) == 0 {
		return nil
	}
	n := len(cols[0])
	pos := make([]int, n)
	for i := range pos {
		pos[i] = i
	}
	sort.SliceStable(pos, func(a, b int) bool {
		for _, c := range cols {
			if c[pos[a]] != c[pos[b]] {
				return c[pos[a]] < c[pos[b]]
			}
		}
		return false
	})
	return pos
}

// IsSorted reports whether col is non-decreasing.
func IsSorted(col []int64) bool {
	for i := 1; i < len(col); i++ {
		if col[i-1] > col[i] {
			return false
		}
	}
	return true
}

// CountPerGroup counts the rows per key value in keys against the domain
// column: every domain value gets a count, including zero. keys values must
// all occur in domain.
func CountPerGroup(keys, domain []int64) []int64 {
	counts := make(map[int64]int64, len(domain))
	for _, k := range keys {
		counts[k]++
	}
	out := make([]int64, len(domain))
	for i, d := range domain {
		out[i] = counts[d]
	}
	return out
}
