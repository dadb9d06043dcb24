package models

import (
	"fmt"
)

// VolumeSeries represents a 4D fMRI time series after axis resolution. The
// samples are stored as a flat array in (T, Z, Y, X) order with X varying
// fastest, matching the layout used throughout the pipeline.
type VolumeSeries struct {
	// Data is the sample data as a 1D array in row-major (T,Z,Y,X) order
	Data []float32

	// T is the number of time points
	T int

	// Z, Y, X are the spatial extents in voxels
	Z, Y, X int

	// AxisStrategy names the resolver that produced the (T,Z,Y,X) ordering
	AxisStrategy string

	// TRSeconds is the repetition time between frames, if known.
	// A value <= 0 means unknown.
	TRSeconds float64
}

// NewVolumeSeries allocates a zero-filled series with the given extents.
func NewVolumeSeries(t, z, y, x int) *VolumeSeries {
	return &VolumeSeries{
		Data: make([]float32, t*z*y*x),
		T:    t,
		Z:    z,
		Y:    y,
		X:    x,
	}
}

// FrameLen returns the number of voxels in a single 3D frame.
func (s *VolumeSeries) FrameLen() int {
	return s.Z * s.Y * s.X
}

// At returns the sample at (t,z,y,x).
func (s *VolumeSeries) At(t, z, y, x int) float32 {
	return s.Data[((t*s.Z+z)*s.Y+y)*s.X+x]
}

// Set stores a sample at (t,z,y,x).
func (s *VolumeSeries) Set(t, z, y, x int, v float32) {
	s.Data[((t*s.Z+z)*s.Y+y)*s.X+x] = v
}

// FrameData returns the slice of Data holding frame t. The returned slice
// aliases the series; callers that mutate it must copy first.
func (s *VolumeSeries) FrameData(t int) []float32 {
	n := s.FrameLen()
	return s.Data[t*n : (t+1)*n]
}

// Validate checks the basic shape invariants of the series.
func (s *VolumeSeries) Validate() error {
	if s.T < 1 {
		return fmt.Errorf("series must have at least one time point, got %d", s.T)
	}
	if s.Z <= 0 || s.Y <= 0 || s.X <= 0 {
		return fmt.Errorf("spatial extents must be positive, got (%d,%d,%d)", s.Z, s.Y, s.X)
	}
	if len(s.Data) != s.T*s.Z*s.Y*s.X {
		return fmt.Errorf("data length %d does not match shape (%d,%d,%d,%d)",
			len(s.Data), s.T, s.Z, s.Y, s.X)
	}
	return nil
}

// Frame is one quantized 3D volume tied to a time index.
type Frame struct {
	// Index is the time index of this frame in [0,T)
	Index int

	// Data holds the 8-bit samples in (Z,Y,X) order, X fastest
	Data []uint8

	// Z, Y, X are the spatial extents in voxels
	Z, Y, X int
}

// Window is a (low, high) intensity bound used to rescale values to [0,1].
type Window struct {
	Low  float64
	High float64
}

// Width returns the extent of the window.
func (w Window) Width() float64 {
	return w.High - w.Low
}

// CropInfo records the outcome of the crop-and-center stage.
type CropInfo struct {
	// Cropped is false when the mask was empty and the series was left alone
	Cropped bool `json:"cropped"`

	// Bounding box of the mask, inclusive start and exclusive end per axis.
	// Only meaningful when Cropped is true.
	Z0 int `json:"z0"`
	Y0 int `json:"y0"`
	X0 int `json:"x0"`
	Z1 int `json:"z1"`
	Y1 int `json:"y1"`
	X1 int `json:"x1"`

	// Margin is the zero-fill padding applied to each spatial face
	Margin int `json:"pad"`
}
