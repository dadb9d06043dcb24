package container

import (
	"errors"
	"testing"
)

func seriesOfLen(n int) []float32 {
	return make([]float32, n)
}

// TestLocatePrefersRecognizedNames verifies the ranking: a smaller dataset
// with a recognized name substring beats a larger anonymous one.
func TestLocatePrefersRecognizedNames(t *testing.T) {
	// Ranking only consults names and shapes, so no sample data is needed.
	c := &MemContainer{Entries: []*MemDataset{
		NewMemDataset("/derivatives/big_array", []int{100, 64, 64, 64}, nil),
		NewMemDataset("/sub-01/bold_timeseries", []int{10, 8, 8, 8}, nil),
	}}

	ds, err := Locate(c, "")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ds.Path() != "/sub-01/bold_timeseries" {
		t.Errorf("Expected the recognized name to win, got %q", ds.Path())
	}
}

// TestLocateRanksBySizeAmongPeers verifies that element count breaks the tie
// between equally recognized names.
func TestLocateRanksBySizeAmongPeers(t *testing.T) {
	c := &MemContainer{Entries: []*MemDataset{
		NewMemDataset("/a/data_small", []int{2, 4, 4, 4}, seriesOfLen(2*4*4*4)),
		NewMemDataset("/b/data_large", []int{20, 4, 4, 4}, seriesOfLen(20*4*4*4)),
	}}

	ds, err := Locate(c, "")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ds.Path() != "/b/data_large" {
		t.Errorf("Expected the larger dataset to win, got %q", ds.Path())
	}
}

// TestLocateTiesKeepTraversalOrder verifies the stable tie-break.
func TestLocateTiesKeepTraversalOrder(t *testing.T) {
	c := &MemContainer{Entries: []*MemDataset{
		NewMemDataset("/first/bold", []int{4, 4, 4, 4}, seriesOfLen(256)),
		NewMemDataset("/second/bold", []int{4, 4, 4, 4}, seriesOfLen(256)),
	}}

	ds, err := Locate(c, "")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ds.Path() != "/first/bold" {
		t.Errorf("Expected traversal order to break the tie, got %q", ds.Path())
	}
}

// TestLocateSkipsNonQualifying verifies that non-4D and non-numeric entries
// never qualify.
func TestLocateSkipsNonQualifying(t *testing.T) {
	text := &MemDataset{Name: "/labels_bold", Dims: []int{4, 4, 4, 4}, Numeric: false}
	c := &MemContainer{Entries: []*MemDataset{
		NewMemDataset("/mean_volume", []int{64, 64, 64}, seriesOfLen(64*64*64)),
		text,
		NewMemDataset("/plain", []int{3, 4, 4, 4}, seriesOfLen(3*4*4*4)),
	}}

	ds, err := Locate(c, "")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ds.Path() != "/plain" {
		t.Errorf("Expected the only qualifying dataset, got %q", ds.Path())
	}
}

// TestLocateNotFound verifies the fatal error when nothing qualifies.
func TestLocateNotFound(t *testing.T) {
	c := &MemContainer{Entries: []*MemDataset{
		NewMemDataset("/mean_volume", []int{64, 64, 64}, seriesOfLen(64*64*64)),
	}}

	_, err := Locate(c, "")
	if !errors.Is(err, ErrNoDataset) {
		t.Errorf("Expected ErrNoDataset, got %v", err)
	}
}

// TestLocateOverride verifies that an explicit dataset path bypasses the
// ranking, and that a missing override is an error.
func TestLocateOverride(t *testing.T) {
	c := &MemContainer{Entries: []*MemDataset{
		NewMemDataset("/bold", []int{4, 4, 4, 4}, seriesOfLen(256)),
		NewMemDataset("/other", []int{2, 4, 4, 4}, seriesOfLen(128)),
	}}

	ds, err := Locate(c, "/other")
	if err != nil {
		t.Fatalf("Locate with override failed: %v", err)
	}
	if ds.Path() != "/other" {
		t.Errorf("Expected the override dataset, got %q", ds.Path())
	}

	if _, err := Locate(c, "/missing"); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Expected ErrNoDataset for a missing override, got %v", err)
	}
}

// TestResolveTR verifies the repetition-time recovery order: override first,
// then dataset attributes, then root attributes, case-insensitively.
func TestResolveTR(t *testing.T) {
	ds := NewMemDataset("/bold", []int{4, 4, 4, 4}, seriesOfLen(256))
	ds.DSAttrs = map[string]float64{"RepetitionTime": 99, "TR": 2.5}
	c := &MemContainer{
		Entries: []*MemDataset{ds},
		Attrs:   map[string]float64{"pixdim4": 3.0},
	}

	if tr, ok := ResolveTR(c, ds, 1.5); !ok || tr != 1.5 {
		t.Errorf("Override should win, got (%v, %v)", tr, ok)
	}

	// "TR" matches case-insensitively; "RepetitionTime" is not a
	// recognized spelling (no underscore).
	if tr, ok := ResolveTR(c, ds, 0); !ok || tr != 2.5 {
		t.Errorf("Dataset attribute should win, got (%v, %v)", tr, ok)
	}

	ds.DSAttrs = nil
	if tr, ok := ResolveTR(c, ds, 0); !ok || tr != 3.0 {
		t.Errorf("Root attribute should be the fallback, got (%v, %v)", tr, ok)
	}

	c.Attrs = nil
	if _, ok := ResolveTR(c, ds, 0); ok {
		t.Error("Expected no TR when no source provides one")
	}
}
