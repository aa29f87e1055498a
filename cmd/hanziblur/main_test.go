package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gocv.io/x/gocv"

	"hanziblur/internal/analysis"
	"hanziblur/internal/config"
	"hanziblur/internal/fallback"
	"hanziblur/internal/services"
	"hanziblur/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

// setupCLIEnv writes a config with no OCR backends so analysis always
// exercises the fallback path and never touches the network.
func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBackends(), testsupport.WithCacheDisabled())
	t.Setenv("HOME", testsupport.BaseDir(cfg))
	t.Setenv("GLM_OCR_API_KEY", "")
	t.Setenv("ZHIPU_API_KEY", "")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{cfg: cfg, configPath: configPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func stripedClip(t *testing.T) testsupport.Clip {
	return testsupport.WriteClip(t, 320, 240, 10, 20, func(_ int, frame *gocv.Mat) {
		testsupport.Stripes(frame, 180, 220, 255)
	})
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	_, err = runCLI(t, "config", "init", "--path", target)
	if err == nil || services.ExitCode(err) != 2 {
		t.Fatalf("expected validation error on second init, got %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[ocr]\nbackends = [\"paddle\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = runCLI(t, "--config", bad, "config", "validate")
	if code := services.ExitCode(err); code != 3 {
		t.Fatalf("exit code = %d (%v), want 3", code, err)
	}
}

func TestAnalyzeRejectsUnreadableVideo(t *testing.T) {
	env := setupCLIEnv(t)
	path := filepath.Join(t.TempDir(), "broken.mp4")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := env.run(t, "analyze", path)
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d (%v), want 2", code, err)
	}
}

func TestAnalyzeJSONUsesFallbackWithoutOCR(t *testing.T) {
	env := setupCLIEnv(t)
	clip := stripedClip(t)

	out, err := env.run(t, "analyze", "--json", clip.Path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var res analysis.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if !res.FallbackUsed || len(res.Tracks) != 1 {
		t.Fatalf("expected one fallback track, got %+v", res)
	}
	if res.Tracks[0].ClusterID != fallback.BandTrack(0).ClusterID {
		t.Fatalf("unexpected track %+v", res.Tracks[0])
	}
}

func TestAnalyzeTableOutput(t *testing.T) {
	env := setupCLIEnv(t)
	clip := stripedClip(t)

	out, err := env.run(t, "analyze", clip.Path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"Engine:   none", "fallback_region_edges", "Start"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBlurFromSavedTracks(t *testing.T) {
	env := setupCLIEnv(t)
	clip := stripedClip(t)

	out, err := env.run(t, "analyze", "--json", clip.Path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	tracksPath := filepath.Join(t.TempDir(), "tracks.json")
	if err := os.WriteFile(tracksPath, []byte(out), 0o644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "out.avi")
	out, err = env.run(t, "blur", clip.Path, "--tracks", tracksPath, "--codec", "MJPG", "-o", target)
	if err != nil {
		t.Fatalf("blur: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Frames: 20 written") {
		t.Fatalf("unexpected blur summary:\n%s", out)
	}
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		t.Fatalf("output not written: %v", err)
	}
}

func TestBlurRefusesToOverwriteInput(t *testing.T) {
	env := setupCLIEnv(t)
	clip := stripedClip(t)
	_, err := env.run(t, "blur", clip.Path, "-o", clip.Path)
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d (%v), want 2", code, err)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	if got := defaultOutputPath("/v/clip.mkv", "", "mp4v"); got != "/v/clip_blurred.mp4" {
		t.Fatalf("got %q", got)
	}
	if got := defaultOutputPath("/v/clip.mkv", "/out", "MJPG"); got != "/out/clip_blurred.avi" {
		t.Fatalf("got %q", got)
	}
	if got := defaultOutputPath("/v/第1集 预告.mp4", "", "mp4v"); got != "/v/第1集_预告_blurred.mp4" {
		t.Fatalf("got %q", got)
	}
}
