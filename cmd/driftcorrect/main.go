package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"astrowaves/pkg/config"
	"astrowaves/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing the timelapse frames")
	outputDir := flag.String("output", "", "Directory for corrected frames (default: <input>_corrected)")
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	method := flag.String("method", "", "Drift correction method (overrides config)")
	workers := flag.Int("workers", 0, "Number of frames corrected in parallel (overrides config)")
	frameStart := flag.Int("start", -1, "First frame to keep (overrides config)")
	frameEnd := flag.Int("end", -1, "Exclusive last frame, 0 keeps all (overrides config)")
	enablePAFFT := flag.Bool("pafft", false, "Align intensity histograms after spatial correction")
	debug := flag.Bool("debug", false, "Render before/after sequences and diagnostic plots")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line values take precedence over the file
	if *method != "" {
		cfg.Correction.Method = *method
	}
	if *workers > 0 {
		cfg.Correction.Workers = *workers
	}
	if *frameStart >= 0 {
		cfg.Input.FrameStart = *frameStart
	}
	if *frameEnd >= 0 {
		cfg.Input.FrameEnd = *frameEnd
	}
	if *enablePAFFT {
		cfg.PAFFT.Enabled = true
	}
	if *debug {
		cfg.Output.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	params := &pipeline.Params{
		InputDir:    *inputDir,
		OutputDir:   *outputDir,
		Method:      cfg.Correction.Method,
		Drift:       cfg.DriftOptions(),
		EnablePAFFT: cfg.PAFFT.Enabled,
		PAFFT:       cfg.PAFFTOptions(),
		FrameStart:  cfg.Input.FrameStart,
		FrameEnd:    cfg.Input.FrameEnd,
		Debug:       cfg.Output.Debug,
		Logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.NewPipeline(params)

	startTime := time.Now()
	if err := p.Process(ctx); err != nil {
		log.Fatalf("Drift correction failed: %v", err)
	}

	fmt.Printf("\nDrift correction completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("Corrected frames saved to: %s\n", p.OutputDir())
	if p.Alignment() != nil {
		fmt.Printf("Aligned histograms saved to: %s\n", p.HistogramPath())
	}

	maxRow, maxCol := 0, 0
	for _, s := range p.Shifts() {
		maxRow = max(maxRow, abs(s.DRow))
		maxCol = max(maxCol, abs(s.DCol))
	}
	fmt.Printf("Frames corrected: %d\n", len(p.Shifts()))
	fmt.Printf("Largest shift: %d rows, %d columns\n", maxRow, maxCol)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
