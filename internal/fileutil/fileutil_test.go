package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprintStableAndDistinct(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	if err := os.WriteFile(a, []byte("ftypisom-payload"), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("ftypisom-payload!"), 0o644); err != nil {
		t.Fatalf("write b: %v", err)
	}

	first, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("fingerprint a: %v", err)
	}
	second, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("fingerprint a again: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable fingerprint, got %s and %s", first, second)
	}
	other, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("fingerprint b: %v", err)
	}
	if other == first {
		t.Fatal("expected distinct fingerprints for different files")
	}
}

func TestFingerprintRejectsDirectory(t *testing.T) {
	if _, err := Fingerprint(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestPrepareOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	out := filepath.Join(dir, "nested", "out.mp4")
	if err := PrepareOutput(in, out); err != nil {
		t.Fatalf("prepare output: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(out)); err != nil || !info.IsDir() {
		t.Fatalf("expected parent dir to exist: %v", err)
	}
	if err := PrepareOutput(in, in); err == nil {
		t.Fatal("expected error when output equals input")
	}
}
