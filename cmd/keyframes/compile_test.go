package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inamate/keyframes/internal/document"
	"github.com/inamate/keyframes/internal/keyframe"
)

func newJob(outDir string, format document.Format) *compileJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &compileJob{
		compiler: keyframe.NewCompiler(keyframe.Options{Logger: logger}),
		format:   format,
		outDir:   outDir,
		workers:  2,
		logger:   logger,
	}
}

func TestCompileDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.geojson", "b.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), document.SampleFeatureJSON(), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644)

	outputs, err := newJob("", document.FormatYAML).compileDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.keyframes.yaml"), filepath.Join(dir, "b.keyframes.yaml")}
	if strings.Join(outputs, ",") != strings.Join(want, ",") {
		t.Fatalf("outputs = %v, want %v", outputs, want)
	}

	data, err := os.ReadFile(outputs[0])
	if err != nil {
		t.Fatal(err)
	}
	doc, err := document.Decode(data, document.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "a" || len(doc.Keyframes) != 6 || doc.Duration != 12000 {
		t.Errorf("doc = %+v", doc)
	}

	// Generated documents are not picked up as inputs on the next run.
	again, err := newJob("", document.FormatYAML).compileDir(context.Background(), dir)
	if err != nil || len(again) != 2 {
		t.Errorf("second run: %v, %v", again, err)
	}
}

func TestCompileDirStopsOnError(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bad.geojson"), []byte(`{"type":"Feature"}`), 0o644)

	if _, err := newJob(t.TempDir(), document.FormatJSON).compileDir(context.Background(), dir); err == nil {
		t.Error("invalid feature compiled")
	}
}

func TestOutputPath(t *testing.T) {
	j := newJob("/out", document.FormatJSON)
	if got := j.outputPath("/in/route.geojson"); got != filepath.Join("/out", "route.keyframes.json") {
		t.Errorf("outputPath = %q", got)
	}
	if isFeatureFile("route.keyframes.json") || !isFeatureFile("ROUTE.GEOJSON") {
		t.Error("isFeatureFile misclassified")
	}
}
