package deps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("Missing should skip optional entries, got %#v", missing)
	}
}

func TestCheckTesseractLanguagesPrefersChinese(t *testing.T) {
	stub := writeStub(t, "tesseract", `echo 'List of available languages in "/usr/share/tessdata/" (3):'
echo chi_sim
echo eng
echo osd`)

	status := CheckTesseractLanguages(context.Background(), stub, false)
	if !status.Available {
		t.Fatalf("expected available, got %q", status.Detail)
	}
	if status.Detail != "using chi_sim+eng" {
		t.Fatalf("detail = %q", status.Detail)
	}
}

func TestCheckTesseractLanguagesWithoutChinese(t *testing.T) {
	stub := writeStub(t, "tesseract", `echo 'List of available languages (1):'
echo eng`)

	status := CheckTesseractLanguages(context.Background(), stub, true)
	if status.Available {
		t.Fatal("expected unavailable without chi_sim")
	}
	if !strings.Contains(status.Detail, "chi_sim not installed") {
		t.Fatalf("detail = %q", status.Detail)
	}
	if !status.Optional {
		t.Fatal("optional flag not carried")
	}
}

func TestCheckTesseractLanguagesMissingBinary(t *testing.T) {
	status := CheckTesseractLanguages(context.Background(), filepath.Join(t.TempDir(), "none"), false)
	if status.Available || status.Detail == "" {
		t.Fatalf("expected failure detail, got %#v", status)
	}
}
