package volume

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"fmriexport/internal/models"
)

// Eps floors every denominator in the normalization math. Windows narrower
// than this are treated as degenerate and widened.
const Eps = 1e-6

// Mode selects the intensity transform.
type Mode string

const (
	// ModeRaw rescales raw intensities inside a whole-series percentile window
	ModeRaw Mode = "raw"

	// ModePSC converts each voxel to percent signal change against its own
	// temporal baseline
	ModePSC Mode = "psc"
)

// BaselineStrategy selects how the PSC baseline is computed.
type BaselineStrategy string

const (
	// BaselineFirstN averages the first N frames per voxel
	BaselineFirstN BaselineStrategy = "firstN"

	// BaselineMean averages every frame per voxel
	BaselineMean BaselineStrategy = "mean"
)

// NormalizeParams configures the intensity transform.
type NormalizeParams struct {
	Mode Mode

	// Baseline and BaselineN apply in PSC mode only
	Baseline  BaselineStrategy
	BaselineN int

	// Clamp is the percent window rescaled to [0,1] in PSC mode
	Clamp models.Window

	// PercentileLow/High are the raw-mode window percentiles (0..100)
	PercentileLow  float64
	PercentileHigh float64
}

// NormalizeResult is the outcome of the whole-series normalization stage.
type NormalizeResult struct {
	// Series holds values in [0,1]
	Series *models.VolumeSeries

	// Window is the intensity window actually used for rescaling
	Window models.Window

	// Degenerate reports that the window had (near) zero width and the
	// denominator was floored to Eps
	Degenerate bool
}

// Normalize maps the series into [0,1] according to the configured mode.
// The whole-series statistic (percentile window or per-voxel baseline) is
// computed first; no output value is produced before it is finalized. The
// output is always finite.
func Normalize(s *models.VolumeSeries, p NormalizeParams) (*NormalizeResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch p.Mode {
	case ModeRaw:
		return normalizeRaw(s, p)
	case ModePSC:
		return normalizePSC(s, p)
	default:
		return nil, fmt.Errorf("unknown normalization mode %q", p.Mode)
	}
}

// normalizeRaw clips the series to a whole-series percentile window and
// rescales it to [0,1].
func normalizeRaw(s *models.VolumeSeries, p NormalizeParams) (*NormalizeResult, error) {
	lo, hi := percentileWindow(s.Data, p.PercentileLow, p.PercentileHigh)

	degenerate := hi-lo < Eps
	denom := hi - lo
	if degenerate {
		denom = Eps
	}

	out := models.NewVolumeSeries(s.T, s.Z, s.Y, s.X)
	out.AxisStrategy = s.AxisStrategy
	out.TRSeconds = s.TRSeconds
	for i, v := range s.Data {
		out.Data[i] = clamp01(float32((float64(v) - lo) / denom))
	}

	return &NormalizeResult{
		Series:     out,
		Window:     models.Window{Low: lo, High: hi},
		Degenerate: degenerate,
	}, nil
}

// normalizePSC converts every sample to percent signal change against the
// per-voxel baseline and rescales the clamp window to [0,1].
func normalizePSC(s *models.VolumeSeries, p NormalizeParams) (*NormalizeResult, error) {
	n := p.BaselineN
	if p.Baseline == BaselineMean {
		n = s.T
	}
	if n < 1 || n > s.T {
		return nil, fmt.Errorf("baseline window %d outside 1..%d", n, s.T)
	}

	baseline := voxelBaseline(s, n)

	degenerate := p.Clamp.Width() < Eps
	denom := p.Clamp.Width()
	if degenerate {
		denom = Eps
	}

	out := models.NewVolumeSeries(s.T, s.Z, s.Y, s.X)
	out.AxisStrategy = s.AxisStrategy
	out.TRSeconds = s.TRSeconds

	frameLen := s.FrameLen()
	for t := 0; t < s.T; t++ {
		in := s.FrameData(t)
		dst := out.Data[t*frameLen : (t+1)*frameLen]
		for i, v := range in {
			b := baseline[i]
			psc := 100 * (float64(v) - b) / b
			if psc < p.Clamp.Low {
				psc = p.Clamp.Low
			} else if psc > p.Clamp.High {
				psc = p.Clamp.High
			}
			dst[i] = clamp01(float32((psc - p.Clamp.Low) / denom))
		}
	}

	return &NormalizeResult{
		Series:     out,
		Window:     p.Clamp,
		Degenerate: degenerate,
	}, nil
}

// voxelBaseline computes the per-voxel mean of the first n frames, with the
// near-zero guard applied: magnitudes below Eps are replaced by Eps carrying
// the baseline's sign, and an exactly zero baseline becomes +Eps. This keeps
// the PSC division finite for every voxel.
func voxelBaseline(s *models.VolumeSeries, n int) []float64 {
	frameLen := s.FrameLen()
	baseline := make([]float64, frameLen)
	for t := 0; t < n; t++ {
		frame := s.FrameData(t)
		for i, v := range frame {
			baseline[i] += float64(v)
		}
	}
	inv := 1.0 / float64(n)
	for i, b := range baseline {
		b *= inv
		if math.Abs(b) < Eps {
			if b < 0 {
				b = -Eps
			} else {
				b = Eps
			}
		}
		baseline[i] = b
	}
	return baseline
}

// percentileWindow computes the (low, high) percentile bounds over the whole
// series. Percentiles are in 0..100.
func percentileWindow(data []float32, lo, hi float64) (float64, float64) {
	sorted := make([]float64, len(data))
	for i, v := range data {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	low := stat.Quantile(lo/100, stat.Empirical, sorted, nil)
	high := stat.Quantile(hi/100, stat.Empirical, sorted, nil)
	return low, high
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
