package export

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"fmriexport/internal/models"
	"fmriexport/pkg/axes"
	"fmriexport/pkg/container"
	"fmriexport/pkg/volume"
)

// Format selects the frame serialization convention.
type Format string

const (
	// FormatMetaImage writes .mhd/.raw header pairs
	FormatMetaImage Format = "mhd"

	// FormatFlat writes headerless .vol files plus an anatomy volume
	FormatFlat Format = "vol"
)

// Params is the immutable configuration record consumed by one export run.
type Params struct {
	// Dataset overrides auto-detection with an exact dataset path
	Dataset string

	// TimeAxis is the explicit time-axis index in 0..3, or -1 to use the
	// shape heuristic
	TimeAxis int

	// Mode selects raw-percentile or percent-signal-change normalization
	Mode volume.Mode

	// Baseline and BaselineN configure the PSC baseline
	Baseline  volume.BaselineStrategy
	BaselineN int

	// Clamp is the PSC percent window mapped to [0,1]
	Clamp models.Window

	// PercentileLow/High bound the raw-mode intensity window, in 0..100
	PercentileLow  float64
	PercentileHigh float64

	// Downsample is the integer spatial reduction factor, 1 for none
	Downsample int

	// CropCenter enables the bounding-box crop stage
	CropCenter    bool
	CropThreshold float64
	CropMargin    int

	// TROverride forces the repetition time in seconds; 0 means read it
	// from container attributes
	TROverride float64

	// OutputDir receives the frame files and the manifest. The directory is
	// owned exclusively by one run.
	OutputDir string

	// Format selects the serialization convention
	Format Format

	// NumCores bounds the parallel frame writers
	NumCores int

	// Verbose enables step banners and progress output
	Verbose bool
}

// Validate checks every statically checkable parameter. Bounds that depend
// on the series length (the baseline window) are checked again after the
// source shape is known.
func (p *Params) Validate() error {
	if p.TimeAxis < -1 || p.TimeAxis > 3 {
		return &ConfigError{Field: "time axis", Msg: fmt.Sprintf("must be 0..3 (or -1 for auto), got %d", p.TimeAxis)}
	}
	switch p.Mode {
	case volume.ModeRaw, volume.ModePSC:
	default:
		return &ConfigError{Field: "mode", Msg: fmt.Sprintf("must be %q or %q, got %q", volume.ModeRaw, volume.ModePSC, p.Mode)}
	}
	if p.Mode == volume.ModePSC {
		switch p.Baseline {
		case volume.BaselineFirstN, volume.BaselineMean:
		default:
			return &ConfigError{Field: "baseline", Msg: fmt.Sprintf("must be %q or %q, got %q", volume.BaselineFirstN, volume.BaselineMean, p.Baseline)}
		}
		if p.Baseline == volume.BaselineFirstN && p.BaselineN <= 0 {
			return &ConfigError{Field: "baseline window", Msg: fmt.Sprintf("must be at least 1, got %d", p.BaselineN)}
		}
		if p.Clamp.Low >= p.Clamp.High {
			return &ConfigError{Field: "clamp window", Msg: fmt.Sprintf("low %g must be below high %g", p.Clamp.Low, p.Clamp.High)}
		}
	}
	if p.Mode == volume.ModeRaw {
		if p.PercentileLow < 0 || p.PercentileHigh > 100 || p.PercentileLow >= p.PercentileHigh {
			return &ConfigError{Field: "percentile window", Msg: fmt.Sprintf("need 0 <= low < high <= 100, got %g..%g", p.PercentileLow, p.PercentileHigh)}
		}
	}
	if p.Downsample < 1 {
		return &ConfigError{Field: "downsample factor", Msg: fmt.Sprintf("must be at least 1, got %d", p.Downsample)}
	}
	if p.CropCenter {
		if p.CropMargin < 0 {
			return &ConfigError{Field: "crop margin", Msg: fmt.Sprintf("must be non-negative, got %d", p.CropMargin)}
		}
		if p.CropThreshold < 0 || p.CropThreshold >= 1 {
			return &ConfigError{Field: "crop threshold", Msg: fmt.Sprintf("must be in [0,1), got %g", p.CropThreshold)}
		}
	}
	switch p.Format {
	case FormatMetaImage, FormatFlat:
	default:
		return &ConfigError{Field: "format", Msg: fmt.Sprintf("must be %q or %q, got %q", FormatMetaImage, FormatFlat, p.Format)}
	}
	if p.OutputDir == "" {
		return &ConfigError{Field: "output directory", Msg: "must not be empty"}
	}
	return nil
}

// Exporter runs the normalization-and-export pipeline over one container.
type Exporter struct {
	params *Params
}

// NewExporter creates an exporter for the given immutable parameters.
func NewExporter(params *Params) *Exporter {
	return &Exporter{params: params}
}

// Run executes the full pipeline against the container and returns the run
// manifest. All whole-series statistics (percentile window, PSC baseline,
// crop mask) are finalized before the first frame is emitted; after that
// barrier the per-frame quantize+serialize work runs in parallel, with
// cancellation checked between frame writes. The manifest is written only
// when every frame write succeeded.
func (e *Exporter) Run(ctx context.Context, c container.Container) (*Manifest, error) {
	p := e.params
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// Step 1: locate the primary 4D dataset.
	e.logf("Step 1: Locating 4D dataset...")
	ds, err := container.Locate(c, p.Dataset)
	if err != nil {
		return nil, err
	}
	shape := ds.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("dataset %q is not 4D: %w", ds.Path(), container.ErrNoDataset)
	}
	e.logf("Using dataset %q with shape %v", ds.Path(), shape)

	// Step 2: read and reorder to (T,Z,Y,X).
	e.logf("Step 2: Resolving axes...")
	raw, err := ds.ReadFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading dataset %q: %w", ds.Path(), err)
	}
	var resolver axes.Resolver
	if p.TimeAxis >= 0 {
		resolver = axes.ExplicitAxis{Axis: p.TimeAxis}
	} else {
		resolver = axes.ThresholdHeuristic{}
	}
	var shape4 [4]int
	copy(shape4[:], shape)
	order, err := resolver.Resolve(shape4)
	if err != nil {
		return nil, err
	}
	series, err := axes.Reorder(raw, shape4, order)
	if err != nil {
		return nil, err
	}
	e.logf("Interpreted axes as (T,Z,Y,X) = (%d,%d,%d,%d) [%s]", series.T, series.Z, series.Y, series.X, order.Strategy)

	// The baseline window depends on T, so it is checked here, still before
	// any processing output.
	if p.Mode == volume.ModePSC && p.Baseline == volume.BaselineFirstN && p.BaselineN > series.T {
		return nil, &ConfigError{Field: "baseline window", Msg: fmt.Sprintf("%d exceeds series length %d", p.BaselineN, series.T)}
	}

	// Repetition time: override, then dataset attributes, then root.
	if tr, ok := container.ResolveTR(c, ds, p.TROverride); ok {
		series.TRSeconds = tr
	}

	// Step 3: spatial downsampling.
	e.logf("Step 3: Downsampling (%s)...", volume.DownsampleMethod(series, p.Downsample))
	series, err = volume.Downsample(series, p.Downsample)
	if err != nil {
		return nil, err
	}
	e.logf("Downsampled to (T,Z,Y,X) = (%d,%d,%d,%d)", series.T, series.Z, series.Y, series.X)

	// Step 4: normalization. This is the whole-series barrier: the
	// percentile window or per-voxel baseline is reduced over the entire
	// series before any frame can be produced.
	e.logf("Step 4: Normalizing (%s)...", p.Mode)
	norm, err := volume.Normalize(series, volume.NormalizeParams{
		Mode:           p.Mode,
		Baseline:       p.Baseline,
		BaselineN:      p.BaselineN,
		Clamp:          p.Clamp,
		PercentileLow:  p.PercentileLow,
		PercentileHigh: p.PercentileHigh,
	})
	if err != nil {
		return nil, err
	}
	if norm.Degenerate {
		e.logf("Warning: degenerate intensity window [%g,%g), widened by epsilon", norm.Window.Low, norm.Window.High)
	}
	series = norm.Series

	// Step 5: optional crop to the thresholded mask.
	cropInfo := models.CropInfo{Cropped: false}
	if p.CropCenter {
		e.logf("Step 5: Cropping to thresholded bounding box...")
		series, cropInfo, err = volume.CropCenter(series, p.CropThreshold, p.CropMargin)
		if err != nil {
			return nil, err
		}
		if cropInfo.Cropped {
			e.logf("Cropped to (Z,Y,X) = (%d,%d,%d) with margin %d", series.Z, series.Y, series.X, cropInfo.Margin)
		} else {
			e.logf("No voxel above threshold %g, crop skipped", p.CropThreshold)
		}
	}

	// Step 6: quantize and serialize every frame. Past the normalization
	// barrier the frames are independent, so the writes fan out across
	// workers.
	e.logf("Step 6: Writing %d frames...", series.T)
	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	serializer := e.serializer()
	refs, err := e.writeFrames(ctx, series, serializer)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		NFrames:          series.T,
		Dims:             [3]int{series.X, series.Y, series.Z},
		Dtype:            "uint8",
		Mode:             string(p.Mode),
		Clamp:            [2]float64{norm.Window.Low, norm.Window.High},
		Downsample:       p.Downsample,
		AxisStrategy:     series.AxisStrategy,
		DegenerateWindow: norm.Degenerate,
		Crop:             cropInfo,
	}
	if series.TRSeconds > 0 {
		tr := series.TRSeconds
		manifest.TRSeconds = &tr
	}
	if flat, ok := serializer.(FlatSerializer); ok {
		manifest.Frames = refs
		mean := volume.TimeMean(series)
		anatomy := volume.Quantize(mean, models.Window{Low: 0, High: 1}, flat.Rounding())
		ref, err := flat.WriteAnatomy(p.OutputDir, anatomy)
		if err != nil {
			return nil, err
		}
		manifest.Anatomy = ref
	}

	// Step 7: the manifest is the success marker, written last.
	if err := WriteManifest(p.OutputDir, manifest); err != nil {
		return nil, err
	}
	e.logf("Done. Wrote %d frames to %s", series.T, p.OutputDir)
	return manifest, nil
}

// serializer picks the configured serialization strategy.
func (e *Exporter) serializer() FrameSerializer {
	if e.params.Format == FormatFlat {
		prefix := "psc"
		if e.params.Mode == volume.ModeRaw {
			prefix = "raw"
		}
		return FlatSerializer{Prefix: prefix}
	}
	return MetaImageSerializer{}
}

// writeFrames quantizes and serializes every frame, in parallel across
// NumCores workers. Any failure cancels the remaining writes and is returned
// as a FrameWriteError; frames already on disk stay there.
func (e *Exporter) writeFrames(ctx context.Context, s *models.VolumeSeries, serializer FrameSerializer) ([]FrameRef, error) {
	workers := e.params.NumCores
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	refs := make([]FrameRef, s.T)
	var written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for t := 0; t < s.T; t++ {
		// Best-effort cancellation between frame writes.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			frame := volume.QuantizeFrame(s, t, models.Window{Low: 0, High: 1}, serializer.Rounding())
			ref, err := serializer.WriteFrame(e.params.OutputDir, frame)
			if err != nil {
				return &FrameWriteError{Frame: t, Err: err}
			}
			refs[t] = FrameRef{File: ref, T: t}

			if n := written.Add(1); n%10 == 0 || int(n) == s.T {
				e.logf("Wrote frame %d/%d", n, s.T)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The caller's context, not the group's, decides whether the run was
	// cancelled; the group context is cancelled by Wait on success too.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (e *Exporter) logf(format string, args ...interface{}) {
	if e.params.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}
