package volume

import (
	"math"
	"testing"

	"fmriexport/internal/models"
)

// fillSeries builds a series whose value at (t,z,y,x) comes from the pattern
// function.
func fillSeries(t, z, y, x int, pattern func(tt, zz, yy, xx int) float32) *models.VolumeSeries {
	s := models.NewVolumeSeries(t, z, y, x)
	for tt := 0; tt < t; tt++ {
		for zz := 0; zz < z; zz++ {
			for yy := 0; yy < y; yy++ {
				for xx := 0; xx < x; xx++ {
					s.Set(tt, zz, yy, xx, pattern(tt, zz, yy, xx))
				}
			}
		}
	}
	return s
}

// TestDownsampleIdentity verifies that a factor of 1 copies the series.
func TestDownsampleIdentity(t *testing.T) {
	s := fillSeries(2, 4, 4, 4, func(tt, zz, yy, xx int) float32 {
		return float32(tt*1000 + zz*100 + yy*10 + xx)
	})

	out, err := Downsample(s, 1)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	if out.Z != 4 || out.Y != 4 || out.X != 4 {
		t.Fatalf("Expected unchanged extents, got (%d,%d,%d)", out.Z, out.Y, out.X)
	}
	for i := range s.Data {
		if out.Data[i] != s.Data[i] {
			t.Fatalf("Value changed at index %d: %v != %v", i, out.Data[i], s.Data[i])
		}
	}

	// Identity still returns a fresh array.
	out.Data[0] = -1
	if s.Data[0] == -1 {
		t.Error("Downsample aliased the input array")
	}
}

// TestBlockMeanConstantVolume verifies the exact block mean on a constant
// volume: every output voxel must equal the constant.
func TestBlockMeanConstantVolume(t *testing.T) {
	s := fillSeries(3, 8, 8, 8, func(tt, zz, yy, xx int) float32 { return 7.5 })

	out, err := Downsample(s, 2)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	if out.Z != 4 || out.Y != 4 || out.X != 4 {
		t.Fatalf("Expected extents (4,4,4), got (%d,%d,%d)", out.Z, out.Y, out.X)
	}
	for i, v := range out.Data {
		if v != 7.5 {
			t.Fatalf("Constant volume changed at index %d: got %v", i, v)
		}
	}
}

// TestBlockMeanGradientVolume verifies the block mean against the analytic
// mean of a linear gradient: the mean of a 2-block along one axis at output
// index i is i*f + (f-1)/2.
func TestBlockMeanGradientVolume(t *testing.T) {
	const f = 2
	s := fillSeries(1, 4, 4, 4, func(tt, zz, yy, xx int) float32 {
		return float32(xx)
	})

	out, err := Downsample(s, f)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}

	for z := 0; z < out.Z; z++ {
		for y := 0; y < out.Y; y++ {
			for x := 0; x < out.X; x++ {
				want := float64(x*f) + float64(f-1)/2
				got := float64(out.At(0, z, y, x))
				if math.Abs(got-want) > 1e-6 {
					t.Fatalf("At(0,%d,%d,%d): expected %v, got %v", z, y, x, want, got)
				}
			}
		}
	}
}

// TestStrideFallback verifies the lossy stride path on extents that are not
// divisible by the factor: output[i,j,k] == input[i*f, j*f, k*f].
func TestStrideFallback(t *testing.T) {
	const f = 2
	s := fillSeries(2, 5, 6, 7, func(tt, zz, yy, xx int) float32 {
		return float32(tt*10000 + zz*100 + yy*10 + xx)
	})

	out, err := Downsample(s, f)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	if out.Z != 3 || out.Y != 3 || out.X != 4 {
		t.Fatalf("Expected extents (3,3,4), got (%d,%d,%d)", out.Z, out.Y, out.X)
	}

	for tt := 0; tt < out.T; tt++ {
		for z := 0; z < out.Z; z++ {
			for y := 0; y < out.Y; y++ {
				for x := 0; x < out.X; x++ {
					if out.At(tt, z, y, x) != s.At(tt, z*f, y*f, x*f) {
						t.Fatalf("At(%d,%d,%d,%d): expected %v, got %v",
							tt, z, y, x, s.At(tt, z*f, y*f, x*f), out.At(tt, z, y, x))
					}
				}
			}
		}
	}
}

// TestDownsampleMethod checks the reported reduction path.
func TestDownsampleMethod(t *testing.T) {
	divisible := models.NewVolumeSeries(1, 4, 4, 4)
	odd := models.NewVolumeSeries(1, 5, 4, 4)

	if got := DownsampleMethod(divisible, 1); got != "no downsampling" {
		t.Errorf("Expected identity description, got %q", got)
	}
	if got := DownsampleMethod(divisible, 2); got != "block-mean x2" {
		t.Errorf("Expected block-mean description, got %q", got)
	}
	if got := DownsampleMethod(odd, 2); got == "block-mean x2" {
		t.Errorf("Expected stride description for odd extents, got %q", got)
	}
}
