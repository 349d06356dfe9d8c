package metrics

import (
	"cmp"
	"slices"
)

// StatusBucket is the failure count of one request kind and status code.
type StatusBucket struct {
	Kind  string
	Code  string
	Count int
}

// FlattenStatusBuckets lists every kind/code pair, largest count first. Ties
// are ordered by kind and then code.
func FlattenStatusBuckets(buckets map[string]map[string]int) []StatusBucket {
	var rows []StatusBucket
	for kind, codes := range buckets {
		for code, n := range codes {
			rows = append(rows, StatusBucket{Kind: kind, Code: code, Count: n})
		}
	}
	slices.SortFunc(rows, func(a, b StatusBucket) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Code, b.Code),
		)
	})
	return rows
}
