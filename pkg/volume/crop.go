package volume

import (
	"fmt"

	"fmriexport/internal/models"
)

// CropCenter crops a normalized [0,1] series to the bounding box of the
// voxels whose time-mean exceeds threshold, then pads every spatial face by
// margin voxels of zero fill. When no voxel crosses the threshold the series
// is returned as an unchanged copy with Cropped=false.
func CropCenter(s *models.VolumeSeries, threshold float64, margin int) (*models.VolumeSeries, models.CropInfo, error) {
	if err := s.Validate(); err != nil {
		return nil, models.CropInfo{}, err
	}
	if margin < 0 {
		return nil, models.CropInfo{}, fmt.Errorf("crop margin must be non-negative, got %d", margin)
	}

	mean := TimeMean(s)

	// Minimal inclusive-start/exclusive-end box over all voxels above
	// threshold.
	z0, y0, x0 := s.Z, s.Y, s.X
	z1, y1, x1 := 0, 0, 0
	any := false
	idx := 0
	for z := 0; z < s.Z; z++ {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				if float64(mean[idx]) > threshold {
					any = true
					if z < z0 {
						z0 = z
					}
					if y < y0 {
						y0 = y
					}
					if x < x0 {
						x0 = x
					}
					if z >= z1 {
						z1 = z + 1
					}
					if y >= y1 {
						y1 = y + 1
					}
					if x >= x1 {
						x1 = x + 1
					}
				}
				idx++
			}
		}
	}

	if !any {
		out := models.NewVolumeSeries(s.T, s.Z, s.Y, s.X)
		out.AxisStrategy = s.AxisStrategy
		out.TRSeconds = s.TRSeconds
		copy(out.Data, s.Data)
		return out, models.CropInfo{Cropped: false}, nil
	}

	cz, cy, cx := z1-z0, y1-y0, x1-x0
	out := models.NewVolumeSeries(s.T, cz+2*margin, cy+2*margin, cx+2*margin)
	out.AxisStrategy = s.AxisStrategy
	out.TRSeconds = s.TRSeconds

	for t := 0; t < s.T; t++ {
		for z := 0; z < cz; z++ {
			for y := 0; y < cy; y++ {
				for x := 0; x < cx; x++ {
					out.Set(t, z+margin, y+margin, x+margin, s.At(t, z0+z, y0+y, x0+x))
				}
			}
		}
	}

	info := models.CropInfo{
		Cropped: true,
		Z0:      z0, Y0: y0, X0: x0,
		Z1: z1, Y1: y1, X1: x1,
		Margin: margin,
	}
	return out, info, nil
}

// TimeMean computes the per-voxel mean over all frames, returned in (Z,Y,X)
// order.
func TimeMean(s *models.VolumeSeries) []float32 {
	frameLen := s.FrameLen()
	acc := make([]float64, frameLen)
	for t := 0; t < s.T; t++ {
		frame := s.FrameData(t)
		for i, v := range frame {
			acc[i] += float64(v)
		}
	}
	mean := make([]float32, frameLen)
	inv := 1.0 / float64(s.T)
	for i, v := range acc {
		mean[i] = float32(v * inv)
	}
	return mean
}
