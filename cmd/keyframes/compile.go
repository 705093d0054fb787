package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/inamate/keyframes/internal/document"
	"github.com/inamate/keyframes/internal/keyframe"
	"github.com/inamate/keyframes/internal/typeid"
)

type compileJob struct {
	compiler *keyframe.Compiler
	format   document.Format
	// outDir empty writes next to the input.
	outDir  string
	workers int
	logger  *slog.Logger
}

func isFeatureFile(path string) bool {
	if strings.Contains(filepath.Base(path), ".keyframes.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".geojson" || ext == ".json"
}

func (j *compileJob) outputPath(in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".keyframes." + string(j.format)
	dir := j.outDir
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, base)
}

// compileFile compiles one feature file and writes its keyframe document.
func (j *compileJob) compileFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	track, err := j.compiler.Compile(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out, err := document.FromTrack(typeid.NewTrackID(), name, track).Encode(j.format)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	dst := j.outputPath(path)
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return "", err
	}
	j.logger.Info("compiled", "input", path, "output", dst, "keyframes", len(track.Keyframes))
	return dst, nil
}

// compileDir compiles every feature file in dir concurrently and stops at
// the first error.
func (j *compileJob) compileDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var inputs []string
	for _, e := range entries {
		if !e.IsDir() && isFeatureFile(e.Name()) {
			inputs = append(inputs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(inputs)

	outputs := make([]string, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if j.workers > 0 {
		g.SetLimit(j.workers)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			out, err := j.compileFile(in)
			outputs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
