// Package volume implements the per-voxel transforms of the export pipeline:
// spatial downsampling, intensity normalization, crop-and-center, and 8-bit
// quantization. Every transform returns a fresh array; inputs are never
// mutated.
package volume

import (
	"fmt"

	"fmriexport/internal/models"
)

// Downsample reduces the spatial resolution of every frame by an integer
// factor. A factor of 1 (or less) returns a copy of the input unchanged.
//
// When all three spatial extents are divisible by the factor, each output
// voxel is the exact arithmetic mean of its disjoint f^3 source block. When
// they are not, the series falls back to stride subsampling, keeping every
// f-th voxel along each axis. The stride path is lossy (no averaging) and
// exists only to keep awkward extents exportable.
func Downsample(s *models.VolumeSeries, factor int) (*models.VolumeSeries, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if factor <= 1 {
		out := models.NewVolumeSeries(s.T, s.Z, s.Y, s.X)
		out.AxisStrategy = s.AxisStrategy
		out.TRSeconds = s.TRSeconds
		copy(out.Data, s.Data)
		return out, nil
	}

	if s.Z%factor == 0 && s.Y%factor == 0 && s.X%factor == 0 {
		return blockMean(s, factor), nil
	}
	return strideSample(s, factor), nil
}

// blockMean averages disjoint factor^3 blocks. Extents must be divisible.
func blockMean(s *models.VolumeSeries, f int) *models.VolumeSeries {
	out := models.NewVolumeSeries(s.T, s.Z/f, s.Y/f, s.X/f)
	out.AxisStrategy = s.AxisStrategy
	out.TRSeconds = s.TRSeconds

	blockSize := float64(f * f * f)
	for t := 0; t < s.T; t++ {
		for z := 0; z < out.Z; z++ {
			for y := 0; y < out.Y; y++ {
				for x := 0; x < out.X; x++ {
					var sum float64
					for dz := 0; dz < f; dz++ {
						for dy := 0; dy < f; dy++ {
							for dx := 0; dx < f; dx++ {
								sum += float64(s.At(t, z*f+dz, y*f+dy, x*f+dx))
							}
						}
					}
					out.Set(t, z, y, x, float32(sum/blockSize))
				}
			}
		}
	}
	return out
}

// strideSample keeps every f-th voxel along each spatial axis.
func strideSample(s *models.VolumeSeries, f int) *models.VolumeSeries {
	nz := ceilDiv(s.Z, f)
	ny := ceilDiv(s.Y, f)
	nx := ceilDiv(s.X, f)
	out := models.NewVolumeSeries(s.T, nz, ny, nx)
	out.AxisStrategy = s.AxisStrategy
	out.TRSeconds = s.TRSeconds

	for t := 0; t < s.T; t++ {
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					out.Set(t, z, y, x, s.At(t, z*f, y*f, x*f))
				}
			}
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// DownsampleMethod names the reduction path Downsample would take for this
// series, for progress output.
func DownsampleMethod(s *models.VolumeSeries, factor int) string {
	if factor <= 1 {
		return "no downsampling"
	}
	if s.Z%factor == 0 && s.Y%factor == 0 && s.X%factor == 0 {
		return fmt.Sprintf("block-mean x%d", factor)
	}
	return fmt.Sprintf("stride x%d (extents not divisible, lossy fallback)", factor)
}
