// Package container abstracts the hierarchical numeric-array file holding the
// fMRI time series, and locates the primary 4D dataset inside it. The pipeline
// only ever sees the Container and Dataset interfaces; the HDF5 adapter in
// this package is one implementation.
package container

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoDataset is returned when a container holds no 4D numeric dataset.
var ErrNoDataset = errors.New("no 4D numeric dataset found")

// preferredSubstrings are dataset-name fragments that mark an entry as the
// likely BOLD signal, checked case-insensitively.
var preferredSubstrings = []string{"bold", "timeseries", "data"}

// Dataset is one named array entry inside a container.
type Dataset interface {
	// Path is the full name of the entry inside the container
	Path() string

	// Shape returns the extent of each dimension
	Shape() []int

	// IsNumeric reports whether the element type is an integer or float type
	IsNumeric() bool

	// ReadFloat32 reads the full contents as a dense float32 array
	ReadFloat32() ([]float32, error)

	// AttrNames lists the string-keyed attributes on this entry
	AttrNames() []string

	// AttrFloat reads a scalar (or first element of a small array) attribute
	AttrFloat(name string) (float64, error)
}

// Container is an open hierarchical numeric-array file.
type Container interface {
	// Datasets enumerates every dataset in traversal order
	Datasets() ([]Dataset, error)

	// AttrNames lists the attributes on the container root
	AttrNames() []string

	// AttrFloat reads a root attribute as a float
	AttrFloat(name string) (float64, error)

	// Close releases the underlying file
	Close() error
}

// Locate finds the most likely primary 4D signal in the container.
// When override is non-empty the dataset with that exact path is used instead
// of the ranking. Candidates are all 4D numeric datasets, ranked by whether
// their lowercased path contains a recognized substring, then by total element
// count; ties keep traversal order.
func Locate(c Container, override string) (Dataset, error) {
	all, err := c.Datasets()
	if err != nil {
		return nil, fmt.Errorf("enumerating datasets: %w", err)
	}

	if override != "" {
		for _, ds := range all {
			if ds.Path() == override {
				return ds, nil
			}
		}
		return nil, fmt.Errorf("dataset %q: %w", override, ErrNoDataset)
	}

	var candidates []Dataset
	for _, ds := range all {
		if len(ds.Shape()) == 4 && ds.IsNumeric() {
			candidates = append(candidates, ds)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoDataset
	}

	// Stable sort keeps traversal order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := hasPreferredName(candidates[i]), hasPreferredName(candidates[j])
		if pi != pj {
			return pi
		}
		return elementCount(candidates[i]) > elementCount(candidates[j])
	})

	return candidates[0], nil
}

func hasPreferredName(ds Dataset) bool {
	name := strings.ToLower(ds.Path())
	for _, s := range preferredSubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func elementCount(ds Dataset) int {
	n := 1
	for _, d := range ds.Shape() {
		n *= d
	}
	return n
}

// trKeys are the recognized spellings of a repetition-time attribute.
var trKeys = []string{"tr", "repetition_time", "pixdim4"}

// ResolveTR recovers the repetition time in seconds. An explicit override
// wins; otherwise the dataset's attributes are scanned case-insensitively for
// a recognized key, then the container root's. Returns found=false when no
// source yields a value.
func ResolveTR(c Container, ds Dataset, override float64) (tr float64, found bool) {
	if override > 0 {
		return override, true
	}

	if v, ok := scanTRKeys(ds.AttrNames(), ds.AttrFloat); ok {
		return v, true
	}
	if v, ok := scanTRKeys(c.AttrNames(), c.AttrFloat); ok {
		return v, true
	}
	return 0, false
}

func scanTRKeys(names []string, read func(string) (float64, error)) (float64, bool) {
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, key := range trKeys {
			if lower != key {
				continue
			}
			if v, err := read(name); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
