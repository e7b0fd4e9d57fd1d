package series

import (
	"sort"
	"time"
)

// Intersect aligns two return series on their common timestamps, returning
// the paired values in chronological order. Timestamps present in only one
// series are dropped, never forward-filled.
func Intersect(a, b ReturnSeries) (av, bv []float64, ts []time.Time) {
	idx := make(map[time.Time]float64, len(b))
	for _, p := range b {
		idx[p.Timestamp] = p.Value
	}
	for _, p := range a {
		if v, ok := idx[p.Timestamp]; ok {
			av = append(av, p.Value)
			bv = append(bv, v)
			ts = append(ts, p.Timestamp)
		}
	}
	return av, bv, ts
}

// IntersectAll aligns any number of return series on the timestamps common to
// every one of them. The returned matrix is keyed like the input; the shared
// timestamp axis is sorted ascending.
func IntersectAll(all map[string]ReturnSeries) (map[string][]float64, []time.Time) {
	if len(all) == 0 {
		return nil, nil
	}
	counts := make(map[time.Time]int)
	for _, rs := range all {
		for _, p := range rs {
			counts[p.Timestamp]++
		}
	}
	var shared []time.Time
	for ts, n := range counts {
		if n == len(all) {
			shared = append(shared, ts)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	out := make(map[string][]float64, len(all))
	for name, rs := range all {
		idx := make(map[time.Time]float64, len(rs))
		for _, p := range rs {
			idx[p.Timestamp] = p.Value
		}
		col := make([]float64, len(shared))
		for i, ts := range shared {
			col[i] = idx[ts]
		}
		out[name] = col
	}
	return out, shared
}
