package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"hanziblur/internal/config"
	"hanziblur/internal/services/glmocr"
	"hanziblur/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail, got %#v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckGLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"layout_details":[]}`))
	}))
	defer srv.Close()

	result := CheckGLM(context.Background(), glmocr.Config{APIKey: "good-key", BaseURL: srv.URL})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckGLM_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if result := CheckGLM(context.Background(), glmocr.Config{APIKey: "bad", BaseURL: srv.URL}); result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckGLM_MissingKey(t *testing.T) {
	if result := CheckGLM(context.Background(), glmocr.Config{}); result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_TesseractOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.OutputDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 2 {
		t.Fatalf("expected log + cache checks, got %d: %#v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestRunAll_IncludesGLMWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"layout_details":[]}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithGLM(srv.URL), testsupport.WithCacheDisabled())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	found := false
	for _, r := range RunAll(context.Background(), cfg) {
		if r.Name == "GLM-OCR" {
			found = true
			if !r.Passed {
				t.Errorf("GLM check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected GLM-OCR check in results")
	}
}

func TestCheckGLMFromConfig_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Backends = []string{"tesseract"}
	result := CheckGLMFromConfig(context.Background(), &cfg)
	if !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestCheckSystemDeps_StubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) < 2 {
		t.Fatalf("expected ffprobe and tesseract statuses, got %#v", statuses)
	}
	if !statuses[0].Available || !statuses[1].Available {
		t.Fatalf("stubbed binaries should resolve: %#v", statuses[:2])
	}
}
