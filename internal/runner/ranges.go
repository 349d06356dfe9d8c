package runner

// Range is a half-open block of skier ids [Start, End).
type Range struct {
	Start int
	End   int
}

// Len is the number of ids in the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range holds no ids.
func (r Range) Empty() bool {
	return r.Len() == 0
}

// Partition splits skier ids [1, skiers] into units contiguous ranges.
// The first skiers%units ranges receive one extra id, so the union is exact.
// With more units than skiers the trailing ranges are empty.
func Partition(skiers, units int) []Range {
	if units <= 0 {
		return nil
	}
	if skiers < 0 {
		skiers = 0
	}
	base, rem := skiers/units, skiers%units

	ranges := make([]Range, units)
	start := 1
	for i := range ranges {
		size := base
		if i < rem {
			size++
		}
		ranges[i] = Range{Start: start, End: start + size}
		start += size
	}
	return ranges
}
