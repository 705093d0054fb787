// Command keyframes compiles GeoJSON features into keyframe documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/inamate/keyframes/internal/document"
	"github.com/inamate/keyframes/internal/easing"
	"github.com/inamate/keyframes/internal/keyframe"
)

func main() {
	inputPtr := flag.String("input", "", "GeoJSON feature file or directory of .geojson files")
	outputPtr := flag.String("output", "", "Output directory (default: next to each input)")
	formatPtr := flag.String("format", "yaml", "Document format: yaml, json")
	easingPtr := flag.String("easing", easing.DefaultName, "Easing for keyframes without @easing")
	resolutionPtr := flag.Int("resolution", 0, "Smoothing samples per segment (0 disables smoothing)")
	epsilonPtr := flag.Float64("epsilon", 0, "Simplification tolerance in metres before smoothing")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Concurrent compiles for a directory")
	watchPtr := flag.Bool("watch", false, "Recompile when inputs change")
	samplePtr := flag.String("sample", "", "Write the sample feature to this path ('-' for stdout) and exit")
	verbosePtr := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbosePtr {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *samplePtr != "" {
		if err := writeSample(*samplePtr); err != nil {
			logger.Error("write sample", "error", err)
			os.Exit(1)
		}
		return
	}

	if *inputPtr == "" {
		fmt.Fprintln(os.Stderr, "usage: keyframes -input <file|dir> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	format := document.Format(*formatPtr)
	if format != document.FormatYAML && format != document.FormatJSON {
		logger.Error("invalid format", "format", *formatPtr)
		os.Exit(2)
	}

	if *outputPtr != "" {
		if err := os.MkdirAll(*outputPtr, 0o755); err != nil {
			logger.Error("create output directory", "error", err)
			os.Exit(1)
		}
	}

	opts := keyframe.Options{DefaultEasing: *easingPtr, Logger: logger}
	if *resolutionPtr > 0 {
		opts.Smoothing = &keyframe.Smoothing{Resolution: *resolutionPtr, Epsilon: *epsilonPtr}
		if err := opts.Smoothing.Validate(); err != nil {
			logger.Error("invalid smoothing", "error", err)
			os.Exit(2)
		}
	}
	job := &compileJob{
		compiler: keyframe.NewCompiler(opts),
		format:   format,
		outDir:   *outputPtr,
		workers:  *workersPtr,
		logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info, err := os.Stat(*inputPtr)
	if err != nil {
		logger.Error("open input", "error", err)
		os.Exit(1)
	}

	watchDir, only := *inputPtr, ""
	if info.IsDir() {
		outputs, err := job.compileDir(ctx, *inputPtr)
		if err != nil {
			logger.Error("compile failed", "error", err)
			os.Exit(1)
		}
		logger.Info("done", "files", len(outputs))
	} else {
		if _, err := job.compileFile(*inputPtr); err != nil {
			logger.Error("compile failed", "error", err)
			os.Exit(1)
		}
		watchDir, only = filepath.Dir(*inputPtr), *inputPtr
	}

	if *watchPtr {
		if err := job.watch(ctx, watchDir, only); err != nil {
			logger.Error("watch", "error", err)
			os.Exit(1)
		}
	}
}

func writeSample(path string) error {
	data := document.SampleFeatureJSON()
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
