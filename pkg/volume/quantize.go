package volume

import (
	"fmriexport/internal/models"
)

// Rounding is the convention used to turn scaled values into bytes. Each
// serialization variant fixes one convention and applies it to every frame of
// a run; the two conventions are numerically distinct and never mixed.
type Rounding int

const (
	// Truncate drops the fractional part of the scaled value
	Truncate Rounding = iota

	// RoundHalfUp rounds the scaled value to the nearest integer, halves up
	RoundHalfUp
)

// Quantize maps a float volume to 8-bit through the window:
// clip((v-low)/(high-low), 0, 1) * 255, then the rounding convention.
// Any value at or below the low bound maps to 0, any value at or above the
// high bound to 255.
func Quantize(data []float32, w models.Window, r Rounding) []uint8 {
	denom := w.Width()
	if denom < Eps {
		denom = Eps
	}

	out := make([]uint8, len(data))
	for i, v := range data {
		scaled := (float64(v) - w.Low) / denom
		if scaled <= 0 {
			out[i] = 0
			continue
		}
		if scaled >= 1 {
			out[i] = 255
			continue
		}
		scaled *= 255
		if r == RoundHalfUp {
			scaled += 0.5
		}
		out[i] = uint8(scaled)
	}
	return out
}

// QuantizeFrame quantizes one frame of a normalized series.
func QuantizeFrame(s *models.VolumeSeries, t int, w models.Window, r Rounding) *models.Frame {
	return &models.Frame{
		Index: t,
		Data:  Quantize(s.FrameData(t), w, r),
		Z:     s.Z,
		Y:     s.Y,
		X:     s.X,
	}
}
