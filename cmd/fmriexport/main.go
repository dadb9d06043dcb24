package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fmriexport/internal/models"
	"fmriexport/pkg/config"
	"fmriexport/pkg/container"
	"fmriexport/pkg/export"
	"fmriexport/pkg/volume"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Path to the HDF5 file holding the 4D time series")
	configPath := flag.String("config", "fmriexport.yaml", "Optional YAML config file")
	outDir := flag.String("outdir", "", "Output directory (overrides config)")
	dataset := flag.String("dataset", "", "Dataset path inside the container (default: auto-detect)")
	timeAxis := flag.Int("time-axis", -2, "Time axis index 0..3, or -1 for the shape heuristic")
	mode := flag.String("mode", "", "Normalization mode: raw or psc")
	baseline := flag.String("baseline", "", "PSC baseline strategy: firstN or mean")
	baselineN := flag.Int("baselineN", 0, "Frames for baseline when baseline=firstN")
	clampLow := flag.Float64("clamp-low", 0, "PSC clamp window low bound (percent)")
	clampHigh := flag.Float64("clamp-high", 0, "PSC clamp window high bound (percent)")
	downsample := flag.Int("downsample", 0, "Integer spatial downsample factor")
	format := flag.String("format", "", "Frame format: mhd (header pairs) or vol (flat binary)")
	cropCenter := flag.Bool("crop-center", false, "Crop to the thresholded bounding box")
	tr := flag.Float64("tr", 0, "Repetition time override in seconds")
	flag.Parse()

	// Record which flags were actually passed, so a zero value set on the
	// command line still overrides the config file.
	passed := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load the config file (defaults when missing), then let explicit flags
	// override it. The merged record is immutable for the rest of the run.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *dataset != "" {
		cfg.Input.Dataset = *dataset
	}
	if *timeAxis >= -1 {
		cfg.Input.TimeAxis = *timeAxis
	}
	if *mode != "" {
		cfg.Processing.Mode = *mode
	}
	if *baseline != "" {
		cfg.Processing.Baseline = *baseline
	}
	if *baselineN > 0 {
		cfg.Processing.BaselineN = *baselineN
	}
	if passed["clamp-low"] {
		cfg.Processing.ClampLow = *clampLow
	}
	if passed["clamp-high"] {
		cfg.Processing.ClampHigh = *clampHigh
	}
	if *downsample > 0 {
		cfg.Processing.Downsample = *downsample
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *cropCenter {
		cfg.Processing.CropCenter = true
	}
	if *tr > 0 {
		cfg.Input.TRSeconds = *tr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	params := &export.Params{
		Dataset:        cfg.Input.Dataset,
		TimeAxis:       cfg.Input.TimeAxis,
		Mode:           volume.Mode(cfg.Processing.Mode),
		Baseline:       volume.BaselineStrategy(cfg.Processing.Baseline),
		BaselineN:      cfg.Processing.BaselineN,
		Clamp:          models.Window{Low: cfg.Processing.ClampLow, High: cfg.Processing.ClampHigh},
		PercentileLow:  cfg.Processing.PercentileLow,
		PercentileHigh: cfg.Processing.PercentileHigh,
		Downsample:     cfg.Processing.Downsample,
		CropCenter:     cfg.Processing.CropCenter,
		CropThreshold:  cfg.Processing.CropThreshold,
		CropMargin:     cfg.Processing.CropMargin,
		TROverride:     cfg.Input.TRSeconds,
		OutputDir:      cfg.Output.Dir,
		Format:         export.Format(cfg.Output.Format),
		NumCores:       cfg.Processing.NumCores,
		Verbose:        cfg.Output.Verbose,
	}

	fmt.Println("================================")
	fmt.Println("FMRI VOLUME EXPORT: HDF5 TIME SERIES TO 8-BIT RENDER FRAMES")
	fmt.Println("================================")

	c, err := container.OpenHDF5(*inputPath)
	if err != nil {
		log.Fatalf("Failed to open container: %v", err)
	}
	defer c.Close()

	// Ctrl-C cancels between frame writes; partial frames stay on disk and
	// the manifest is never written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter := export.NewExporter(params)

	fmt.Println("Starting export pipeline...")
	startTime := time.Now()
	manifest, err := exporter.Run(ctx, c)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	elapsed := time.Since(startTime)

	fmt.Printf("\nExport completed successfully in %.2f seconds!\n", elapsed.Seconds())
	fmt.Printf("Output written to: %s\n\n", params.OutputDir)

	fmt.Printf("Run summary:\n")
	fmt.Printf("============\n")
	fmt.Printf("Frames: %d\n", manifest.NFrames)
	fmt.Printf("Dimensions (X,Y,Z): %d x %d x %d\n", manifest.Dims[0], manifest.Dims[1], manifest.Dims[2])
	fmt.Printf("Mode: %s, window [%g, %g]\n", manifest.Mode, manifest.Clamp[0], manifest.Clamp[1])
	fmt.Printf("Downsample factor: %d\n", manifest.Downsample)
	if manifest.TRSeconds != nil {
		fmt.Printf("TR: %.3f s\n", *manifest.TRSeconds)
	}
	if manifest.Crop.Cropped {
		fmt.Printf("Cropped to [%d:%d, %d:%d, %d:%d] with margin %d\n",
			manifest.Crop.Z0, manifest.Crop.Z1,
			manifest.Crop.Y0, manifest.Crop.Y1,
			manifest.Crop.X0, manifest.Crop.X1,
			manifest.Crop.Margin)
	}
	if manifest.DegenerateWindow {
		fmt.Println("Note: intensity window was degenerate and epsilon-widened")
	}
}
