package analysis

import (
	"runtime"
	"testing"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Detector.Workers = 2
	cfg.Detector.MergeMode = "weighted"
	cfg.Detector.TrustConfidenceFloor = 0.9
	cfg.OCR.BatchSize = 4

	opts := OptionsFromConfig(&cfg)
	if opts.Workers != 2 || opts.BatchSize != 4 {
		t.Fatalf("unexpected workers/batch %d/%d", opts.Workers, opts.BatchSize)
	}
	if opts.Aggregate.MergeMode != aggregate.MergeWeighted {
		t.Fatalf("merge mode = %q", opts.Aggregate.MergeMode)
	}
	if opts.Policy.TrustFloor != 0.9 {
		t.Fatalf("trust floor = %v", opts.Policy.TrustFloor)
	}
	if opts.SegmentLength != 10 || opts.CriticalInterval != 0.1 || opts.DefaultInterval != 0.3 {
		t.Fatalf("unexpected cadence %+v", opts)
	}
}

func TestDefaultOptionsMatchConfigDefaults(t *testing.T) {
	cfg := config.Default()
	if got, want := OptionsFromConfig(&cfg).SettingsHash("x"), DefaultOptions().SettingsHash("x"); got != want {
		t.Fatal("DefaultOptions drifted from config.Default")
	}
}

func TestWorkerCount(t *testing.T) {
	auto := Options{}
	if got := auto.workerCount(0); got != 0 {
		t.Fatalf("no segments: got %d", got)
	}
	if got := auto.workerCount(1); got != 1 {
		t.Fatalf("one segment: got %d", got)
	}
	want := max(1, min(MaxAutoWorkers, 10, runtime.NumCPU()))
	if got := auto.workerCount(10); got != want {
		t.Fatalf("auto: got %d want %d", got, want)
	}
	fixed := Options{Workers: 8}
	if got := fixed.workerCount(5); got != 5 {
		t.Fatalf("fixed capped by segments: got %d", got)
	}
}

func TestSettingsHashChangesWithEngine(t *testing.T) {
	opts := DefaultOptions()
	if opts.SettingsHash("glm") == opts.SettingsHash("tesseract") {
		t.Fatal("engine should be part of the settings hash")
	}
	other := opts
	other.Policy.CollectionFloor = 0.5
	if opts.SettingsHash("glm") == other.SettingsHash("glm") {
		t.Fatal("policy should be part of the settings hash")
	}
}
