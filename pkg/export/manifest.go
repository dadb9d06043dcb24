package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fmriexport/internal/models"
)

// ManifestName is the fixed name of the run manifest inside the output
// directory. Its presence is the success signal for the run.
const ManifestName = "manifest.json"

// FrameRef ties a frame file to its time index.
type FrameRef struct {
	File string `json:"file"`
	T    int    `json:"t"`
}

// Manifest is the structured sidecar record written once per run, after all
// frames were serialized successfully.
type Manifest struct {
	// NFrames is the number of frames written
	NFrames int `json:"n_frames"`

	// Dims are the final spatial dimensions in X, Y, Z order
	Dims [3]int `json:"dims"`

	// Dtype is the frame element type, always "uint8"
	Dtype string `json:"dtype"`

	// Mode is the normalization mode, "raw" or "psc"
	Mode string `json:"mode"`

	// Clamp is the intensity window actually used, (low, high)
	Clamp [2]float64 `json:"clamp"`

	// Downsample is the spatial downsample factor
	Downsample int `json:"downsample"`

	// TRSeconds is the repetition time, omitted when unknown
	TRSeconds *float64 `json:"tr_seconds,omitempty"`

	// AxisStrategy names the resolver that fixed the axis order
	AxisStrategy string `json:"axis_strategy"`

	// DegenerateWindow flags that the window had zero width and was
	// epsilon-widened
	DegenerateWindow bool `json:"degenerate_window,omitempty"`

	// Crop records the crop-and-center outcome
	Crop models.CropInfo `json:"cropinfo"`

	// Anatomy references the time-mean volume file (flat convention only)
	Anatomy string `json:"anatomy,omitempty"`

	// Frames lists the per-frame files (flat convention only; MetaImage
	// pairs are self-describing)
	Frames []FrameRef `json:"frames,omitempty"`
}

// WriteManifest writes the manifest into dir. It must only be called after
// every frame write succeeded.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
