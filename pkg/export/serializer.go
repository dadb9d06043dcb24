// Package export drives the volume export pipeline: it locates the source
// dataset, resolves axes, normalizes the series, and writes the quantized
// frames plus the run manifest in one of two serialization conventions.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"fmriexport/internal/models"
	"fmriexport/pkg/volume"
)

// FrameSerializer writes one quantized frame to the output directory and
// returns the file reference recorded in the manifest. The two conventions
// (MetaImage header pairs and headerless flat volumes) are numerically
// distinct: each fixes its own rounding convention, applied to every frame of
// a run.
type FrameSerializer interface {
	// Name identifies the serialization convention
	Name() string

	// Rounding is the quantization convention this serializer requires
	Rounding() volume.Rounding

	// WriteFrame writes the frame's files into dir and returns the primary
	// file reference
	WriteFrame(dir string, f *models.Frame) (string, error)
}

// MetaImageSerializer writes each frame as a .mhd/.raw MetaImage pair. The
// payload is contiguous 8-bit values with X varying fastest, then Y, then Z;
// the text header states the dimensions in X Y Z order and references the
// payload by relative name. Quantization truncates.
type MetaImageSerializer struct{}

func (MetaImageSerializer) Name() string { return "mhd" }

func (MetaImageSerializer) Rounding() volume.Rounding { return volume.Truncate }

func (MetaImageSerializer) WriteFrame(dir string, f *models.Frame) (string, error) {
	rawName := fmt.Sprintf("frame_%04d.raw", f.Index)
	mhdName := fmt.Sprintf("frame_%04d.mhd", f.Index)

	if err := os.WriteFile(filepath.Join(dir, rawName), f.Data, 0644); err != nil {
		return "", fmt.Errorf("writing payload %s: %w", rawName, err)
	}

	header := fmt.Sprintf(
		"ObjectType = Image\n"+
			"NDims = 3\n"+
			"DimSize = %d %d %d\n"+
			"ElementType = MET_UCHAR\n"+
			"ElementSpacing = 1 1 1\n"+
			"ElementByteOrderMSB = False\n"+
			"ElementDataFile = %s\n"+
			"\n",
		f.X, f.Y, f.Z, rawName)

	if err := os.WriteFile(filepath.Join(dir, mhdName), []byte(header), 0644); err != nil {
		return "", fmt.Errorf("writing header %s: %w", mhdName, err)
	}
	return mhdName, nil
}

// FlatSerializer writes each frame as a single headerless binary file of
// contiguous 8-bit values, X fastest. Dimensions travel only in the manifest.
// Quantization rounds half-up.
type FlatSerializer struct {
	// Prefix is the frame file prefix, "psc" or "raw" depending on the
	// normalization mode
	Prefix string
}

func (FlatSerializer) Name() string { return "vol" }

func (FlatSerializer) Rounding() volume.Rounding { return volume.RoundHalfUp }

func (s FlatSerializer) WriteFrame(dir string, f *models.Frame) (string, error) {
	name := fmt.Sprintf("%s_%04d.vol", s.Prefix, f.Index)
	if err := os.WriteFile(filepath.Join(dir, name), f.Data, 0644); err != nil {
		return "", fmt.Errorf("writing frame %s: %w", name, err)
	}
	return name, nil
}

// WriteAnatomy writes the time-mean anatomy volume alongside the frames. The
// mean is taken over the normalized series, so in psc mode it reflects the
// mean signal change rather than raw anatomical intensity; a temporally flat
// voxel sits at the midpoint of the window.
func (s FlatSerializer) WriteAnatomy(dir string, data []uint8) (string, error) {
	const name = "anatomy_mean.vol"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing anatomy volume: %w", err)
	}
	return name, nil
}
