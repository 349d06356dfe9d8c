package runner

import "testing"

func TestPartitionCoversAllSkiers(t *testing.T) {
	tests := []struct {
		skiers, units int
	}{
		{20000, 32},
		{10, 3},
		{7, 7},
		{1, 1},
		{3, 5},
		{50000, 256},
		{1000, 7},
	}
	for _, tt := range tests {
		ranges := Partition(tt.skiers, tt.units)
		if len(ranges) != tt.units {
			t.Fatalf("Partition(%d, %d) returned %d ranges", tt.skiers, tt.units, len(ranges))
		}

		next := 1
		minLen, maxLen := tt.skiers+1, -1
		for i, r := range ranges {
			if r.Start != next {
				t.Fatalf("Partition(%d, %d)[%d].Start = %d, want %d", tt.skiers, tt.units, i, r.Start, next)
			}
			if r.End < r.Start {
				t.Fatalf("Partition(%d, %d)[%d] = %+v is inverted", tt.skiers, tt.units, i, r)
			}
			next = r.End
			if r.Len() < minLen {
				minLen = r.Len()
			}
			if r.Len() > maxLen {
				maxLen = r.Len()
			}
		}
		if next != tt.skiers+1 {
			t.Errorf("Partition(%d, %d) covers up to %d, want %d", tt.skiers, tt.units, next-1, tt.skiers)
		}
		if maxLen-minLen > 1 {
			t.Errorf("Partition(%d, %d) sizes range %d..%d, want balanced", tt.skiers, tt.units, minLen, maxLen)
		}
	}
}

func TestPartitionRemainderGoesFirst(t *testing.T) {
	got := Partition(10, 3)
	want := []Range{{1, 5}, {5, 8}, {8, 11}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Partition(10, 3)[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPartitionMoreUnitsThanSkiers(t *testing.T) {
	got := Partition(3, 5)
	empty := 0
	for _, r := range got {
		if r.Empty() {
			empty++
		}
	}
	if empty != 2 {
		t.Errorf("empty ranges = %d, want 2: %+v", empty, got)
	}
}

func TestPartitionNoUnits(t *testing.T) {
	if got := Partition(10, 0); got != nil {
		t.Errorf("Partition(10, 0) = %v, want nil", got)
	}
}
