package metrics

import (
	"slices"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	if rows := FlattenStatusBuckets(nil); rows != nil {
		t.Errorf("nil buckets = %v, want nil", rows)
	}
	if rows := FlattenStatusBuckets(map[string]map[string]int{"write": {}}); rows != nil {
		t.Errorf("kind without codes = %v, want nil", rows)
	}

	got := FlattenStatusBuckets(map[string]map[string]int{
		"write": {"500": 7, "503": 2, "0": 2},
		"read":  {"404": 7, "500": 2},
	})
	want := []StatusBucket{
		{Kind: "read", Code: "404", Count: 7},
		{Kind: "write", Code: "500", Count: 7},
		{Kind: "read", Code: "500", Count: 2},
		{Kind: "write", Code: "0", Count: 2},
		{Kind: "write", Code: "503", Count: 2},
	}
	if !slices.Equal(got, want) {
		t.Errorf("FlattenStatusBuckets() =\n%v\nwant\n%v", got, want)
	}
}
