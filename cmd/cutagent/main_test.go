package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cutagent/internal/media/ffprobe"
	"cutagent/internal/services"
	"cutagent/internal/store"
)

func TestExitCodeMapping(t *testing.T) {
	var stderr bytes.Buffer
	if got := exitCode(nil, &stderr); got != services.ExitSuccess {
		t.Fatalf("nil error exit = %d", got)
	}
	if got := exitCode(&exitError{code: services.ExitExecution}, &stderr); got != services.ExitExecution {
		t.Fatalf("exitError exit = %d", got)
	}
	wrapped := fmt.Errorf("outer: %w", &exitError{code: services.ExitSystem})
	if got := exitCode(wrapped, &stderr); got != services.ExitSystem {
		t.Fatalf("wrapped exitError exit = %d", got)
	}
	if stderr.Len() != 0 {
		t.Fatalf("reported errors must not be printed again, got %q", stderr.String())
	}

	if got := exitCode(errors.New("unknown flag: --bogus"), &stderr); got != services.ExitValidation {
		t.Fatalf("usage error exit = %d", got)
	}
	requireContains(t, stderr.String(), "unknown flag")

	stderr.Reset()
	exitCode(context.Canceled, &stderr)
	if stderr.Len() != 0 {
		t.Fatalf("cancellation should be silent, got %q", stderr.String())
	}
}

func TestCapabilities(t *testing.T) {
	res := runCLI(t, "", "", "capabilities")
	requireCode(t, res, 0)
	out := res.decode(t)
	ops, ok := out["operations"].(map[string]any)
	if !ok || ops["trim"] == nil || ops["animate"] == nil {
		t.Fatalf("expected operation schemas, got %v", out["operations"])
	}

	res = runCLI(t, "", "", "capabilities", "--table")
	requireCode(t, res, 0)
	requireContains(t, res.stdout, "Mix Audio")
	requireContains(t, res.stdout, "mix_audio")
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	res := runCLI(t, "", "", "capabilities", "--bogus")
	requireCode(t, res, services.ExitValidation)
	requireContains(t, res.stderr, "unknown flag")
}

func TestProbeAndKeyframes(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")

	res := runCLI(t, env.configPath, "", "probe", input)
	requireCode(t, res, 0)
	out := res.decode(t)
	if out["duration"] != 10.0 || out["duration_formatted"] != "00:00:10.000" {
		t.Fatalf("unexpected probe output: %v", out)
	}

	res = runCLI(t, env.configPath, "", "keyframes", input)
	requireCode(t, res, 0)
	out = res.decode(t)
	if out["count"] != 3.0 || out["path"] != input {
		t.Fatalf("unexpected keyframes output: %v", out)
	}
}

func TestProbeMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.mediaDir, "missing.mp4")
	for _, command := range []string{"probe", "keyframes"} {
		res := runCLI(t, env.configPath, "", command, missing)
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INPUT_NOT_FOUND")
	}
}

func TestAnalysisCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")

	t.Run("scenes with previews", func(t *testing.T) {
		dir := filepath.Join(env.outDir, "previews")
		res := runCLI(t, env.configPath, "", "scenes", input, "--output-dir", dir)
		requireCode(t, res, 0)
		out := res.decode(t)
		scenes, _ := out["scenes"].([]any)
		if out["count"] != 1.0 || len(scenes) != 1 || out["output_dir"] != dir || out["threshold"] != 0.3 {
			t.Fatalf("unexpected scenes output: %v", out)
		}
		frames, _ := scenes[0].(map[string]any)["frames"].([]any)
		if len(frames) != 3 {
			t.Fatalf("expected three preview frames, got %v", scenes[0])
		}
		if _, err := os.Stat(filepath.Join(dir, "scene_001_5_000.jpg")); err != nil {
			t.Fatalf("expected middle preview frame: %v", err)
		}
		if _, err := os.Stat("-"); err == nil {
			t.Fatal("analysis pass wrote a file named -")
		}
	})

	t.Run("scenes without output dir", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "scenes", input, "--threshold", "0.5")
		requireCode(t, res, 0)
		out := res.decode(t)
		if v, ok := out["output_dir"]; !ok || v != nil || out["threshold"] != 0.5 {
			t.Fatalf("expected null output_dir, got %v", out)
		}
	})

	t.Run("frames", func(t *testing.T) {
		dir := filepath.Join(env.outDir, "frames")
		res := runCLI(t, env.configPath, "", "frames", input, "--at", "1, 00:00:02.5,", "--output-dir", dir, "--format", "png")
		requireCode(t, res, 0)
		out := res.decode(t)
		frames, _ := out["frames"].([]any)
		if out["count"] != 2.0 || len(frames) != 2 {
			t.Fatalf("unexpected frames output: %v", out)
		}
		second := frames[1].(map[string]any)
		if second["path"] != filepath.Join(dir, "frame_001_2_500.png") || second["width"] != 1920.0 {
			t.Fatalf("unexpected frame: %v", second)
		}
	})

	t.Run("frames rejects bad timestamp", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "frames", input, "--at", "soon", "--output-dir", env.outDir)
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INVALID_ARGUMENT")
	})

	t.Run("frames rejects bad format", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "frames", input, "--at", "1", "--output-dir", env.outDir, "--format", "gif")
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INVALID_ARGUMENT")
	})

	t.Run("thumbnail", func(t *testing.T) {
		output := filepath.Join(env.outDir, "thumbs", "cover.jpg")
		res := runCLI(t, env.configPath, "", "thumbnail", input, "--at", "99", "-o", output)
		requireCode(t, res, 0)
		thumb, _ := res.decode(t)["thumbnail"].(map[string]any)
		if thumb["timestamp"] != 10.0 || thumb["path"] != output {
			t.Fatalf("expected a clamped thumbnail, got %v", thumb)
		}
	})

	t.Run("silence", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "silence", input, "--threshold", "-40", "--min-duration", "1")
		requireCode(t, res, 0)
		out := res.decode(t)
		if out["count"] != 0.0 || out["threshold_db"] != -40.0 || out["min_duration"] != 1.0 {
			t.Fatalf("unexpected silence output: %v", out)
		}
	})

	t.Run("audio levels rejects zero interval", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "audio-levels", input, "--interval", "0")
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INVALID_ARGUMENT")
	})

	t.Run("summarize", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "summarize", input)
		requireCode(t, res, 0)
		summary, _ := res.decode(t)["summary"].(map[string]any)
		if summary["duration_formatted"] != "00:00:10.000" || summary["resolution"] != "1920x1080" {
			t.Fatalf("unexpected summary: %v", summary)
		}
		cuts, _ := summary["suggested_cut_points"].([]any)
		if len(cuts) != 1 || cuts[0] != 0.0 {
			t.Fatalf("expected a single cut point at 0, got %v", summary["suggested_cut_points"])
		}
	})

	t.Run("beats", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "beats", input, "--min-interval", "0.2")
		requireCode(t, res, 0)
		out := res.decode(t)
		if v, ok := out["bpm"]; !ok || v != nil || out["count"] != 0.0 || out["path"] != input {
			t.Fatalf("unexpected beats output: %v", out)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "silence", filepath.Join(env.mediaDir, "missing.mp4"))
		requireCode(t, res, services.ExitExecution)
		requireErrorCode(t, res, "INPUT_NOT_FOUND")
	})
}

func TestPruneProbeCacheHonoursRetention(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg := *env.cfg
	cfg.Store.ProbeCacheDays = 7
	st, err := store.Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	input := env.media(t, "clip.mp4")
	stat, err := os.Stat(input)
	if err != nil {
		t.Fatal(err)
	}
	stamp := store.FileStamp{Size: stat.Size(), ModTime: stat.ModTime()}
	if err := st.SaveProbe(ctx, input, stamp, ffprobe.Info{Path: input, Duration: 10}); err != nil {
		t.Fatalf("save probe: %v", err)
	}
	cached := func() bool {
		t.Helper()
		_, ok, err := st.LookupProbe(ctx, input, stamp)
		if err != nil {
			t.Fatalf("lookup probe: %v", err)
		}
		return ok
	}

	pruneProbeCache(ctx, st, &cfg, time.Now().AddDate(0, 0, 6), nil)
	if !cached() {
		t.Fatal("entry inside the retention window was pruned")
	}

	cfg.Store.ProbeCacheDays = 0
	pruneProbeCache(ctx, st, &cfg, time.Now().AddDate(1, 0, 0), nil)
	if !cached() {
		t.Fatal("zero retention must keep entries")
	}

	cfg.Store.ProbeCacheDays = 7
	pruneProbeCache(ctx, st, &cfg, time.Now().AddDate(0, 0, 8), nil)
	if cached() {
		t.Fatal("expected entry older than the retention window to be pruned")
	}
}

func TestValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")
	edlPath := filepath.Join(env.mediaDir, "cut.json")
	if err := os.WriteFile(edlPath, []byte(trimEDL(t, input, filepath.Join(env.outDir, "final.mp4"))), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("file", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "validate", edlPath)
		requireCode(t, res, 0)
		out := res.decode(t)
		if out["valid"] != true || out["estimated_duration"] != 3.0 {
			t.Fatalf("unexpected validation output: %v", out)
		}
	})

	t.Run("stdin", func(t *testing.T) {
		res := runCLI(t, env.configPath, trimEDL(t, input, filepath.Join(env.outDir, "final.mp4")), "validate", "-")
		requireCode(t, res, 0)
	})

	t.Run("inline invalid", func(t *testing.T) {
		bad := trimEDL(t, input, filepath.Join(env.outDir, "final.mp4"))
		bad = strings.Replace(bad, `"$input.0"`, `"$input.7"`, 1)
		res := runCLI(t, env.configPath, "", "validate", "--edl-json", bad)
		requireCode(t, res, services.ExitValidation)
		out := res.decode(t)
		if out["valid"] != false {
			t.Fatalf("expected invalid result, got %v", out)
		}
		requireContains(t, res.stdout, "INVALID_REFERENCE")
	})

	t.Run("missing argument", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "validate")
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "MISSING_FIELD")
	})

	t.Run("missing file", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "validate", filepath.Join(env.mediaDir, "nope.json"))
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INPUT_NOT_FOUND")
	})

	t.Run("watch rejects stdin", func(t *testing.T) {
		res := runCLI(t, env.configPath, "{}", "validate", "--watch", "-")
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INVALID_EDL")
	})
}

func TestExecuteRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")
	output := filepath.Join(env.outDir, "final.mp4")

	res := runCLI(t, env.configPath, "", "execute", "--edl-json", trimEDL(t, input, output))
	requireCode(t, res, 0)
	out := res.decode(t)
	if out["success"] != true || out["output_path"] != output || out["duration_seconds"] != 3.0 {
		t.Fatalf("unexpected execute output: %v", out)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	requireContains(t, res.stderr, `{"progress":{"step":1,"total":1,"op":"trim","status":"running"}}`)
	requireContains(t, res.stderr, `{"progress":{"step":1,"total":1,"op":"trim","status":"done"}}`)

	res = runCLI(t, env.configPath, "", "history", "--json")
	requireCode(t, res, 0)
	out = res.decode(t)
	runs, ok := out["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %v", out)
	}
	run := runs[0].(map[string]any)
	if run["status"] != "succeeded" || run["output_path"] != output {
		t.Fatalf("unexpected run record: %v", run)
	}
}

func TestExecuteQuietAndNoOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")
	output := filepath.Join(env.outDir, "final.mp4")
	edlText := trimEDL(t, input, output)

	res := runCLI(t, env.configPath, "", "execute", "-q", "--edl-json", edlText)
	requireCode(t, res, 0)
	if strings.Contains(res.stderr, "progress") {
		t.Fatalf("quiet run emitted progress: %q", res.stderr)
	}

	res = runCLI(t, env.configPath, "", "execute", "-q", "--no-overwrite", "--edl-json", edlText)
	requireCode(t, res, services.ExitExecution)
	requireErrorCode(t, res, "OUTPUT_ALREADY_EXISTS")
}

func TestExecuteFailureExitsWithExecutionCode(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")
	edlText := strings.Replace(trimEDL(t, input, filepath.Join(env.outDir, "final.mp4")), `"$input.0"`, `"$3"`, 1)

	res := runCLI(t, env.configPath, "", "execute", "-q", "--edl-json", edlText)
	requireCode(t, res, services.ExitExecution)
	requireErrorCode(t, res, "INVALID_REFERENCE")
}

func TestSingleOperationCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.media(t, "clip.mp4")

	t.Run("trim", func(t *testing.T) {
		output := filepath.Join(env.outDir, "nested", "trim.mp4")
		res := runCLI(t, env.configPath, "", "trim", input, "--start", "2", "--end", "4", "-o", output)
		requireCode(t, res, 0)
		out := res.decode(t)
		if out["success"] != true || out["duration_seconds"] != 2.0 {
			t.Fatalf("unexpected trim output: %v", out)
		}
		if _, err := os.Stat(output); err != nil {
			t.Fatalf("expected trim output: %v", err)
		}
	})

	t.Run("split", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "split", input, "--at", "3, 6", "--prefix", filepath.Join(env.outDir, "seg"))
		requireCode(t, res, 0)
		out := res.decode(t)
		if out["count"] != 3.0 {
			t.Fatalf("expected three segments, got %v", out)
		}
		if _, err := os.Stat(filepath.Join(env.outDir, "seg_002.mp4")); err != nil {
			t.Fatalf("expected last segment: %v", err)
		}
	})

	t.Run("concat crossfade with explicit copy", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "concat", input, input,
			"-o", filepath.Join(env.outDir, "joined.mp4"), "--transition", "crossfade", "--codec", "copy")
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "CODEC_INCOMPATIBLE")
	})

	t.Run("concat crossfade", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "concat", input, input,
			"-o", filepath.Join(env.outDir, "joined.mp4"), "--transition", "crossfade")
		requireCode(t, res, 0)
		out := res.decode(t)
		if out["duration_seconds"] != 19.5 {
			t.Fatalf("expected 10+10-0.5 seconds, got %v", out)
		}
	})

	t.Run("speed out of range", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "speed", input, "-o", filepath.Join(env.outDir, "fast.mp4"), "--factor", "500")
		requireCode(t, res, services.ExitValidation)
		requireErrorCode(t, res, "INVALID_SPEED_FACTOR")
	})

	t.Run("volume", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "volume", input, "-o", filepath.Join(env.outDir, "loud.mp4"), "--gain-db", "3")
		requireCode(t, res, 0)
	})

	t.Run("missing required flag", func(t *testing.T) {
		res := runCLI(t, env.configPath, "", "extract", input, "-o", filepath.Join(env.outDir, "a.aac"))
		requireCode(t, res, services.ExitValidation)
		requireContains(t, res.stderr, "stream")
	})
}

func TestDoctor(t *testing.T) {
	env := setupCLITestEnv(t)

	res := runCLI(t, env.configPath, "", "doctor")
	requireCode(t, res, 0)
	out := res.decode(t)
	if out["healthy"] != true {
		t.Fatalf("expected healthy report, got %v", out)
	}

	res = runCLI(t, env.configPath, "", "doctor", "--table")
	requireCode(t, res, 0)
	requireContains(t, res.stdout, "FFprobe")
	requireContains(t, res.stdout, "Filter drawtext")
}

func TestHistoryUnavailableWithoutStore(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Store.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	res := runCLI(t, env.configPath, "", "history")
	requireCode(t, res, services.ExitSystem)
	requireErrorCode(t, res, "UNEXPECTED_ERROR")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	res := runCLI(t, env.configPath, "", "config", "validate")
	requireCode(t, res, 0)
	out := res.decode(t)
	if out["valid"] != true || out["exists"] != true || out["path"] != env.configPath {
		t.Fatalf("unexpected config validate output: %v", out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	res = runCLI(t, "", "", "config", "init", "--path", target)
	requireCode(t, res, 0)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	res = runCLI(t, "", "", "config", "init", "--path", target)
	requireCode(t, res, services.ExitValidation)
	requireErrorCode(t, res, "OUTPUT_ALREADY_EXISTS")

	res = runCLI(t, "", "", "config", "init", "--path", target, "--overwrite")
	requireCode(t, res, 0)
}

func TestBrokenConfigIsSystemError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[ffmpeg\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := runCLI(t, path, "", "doctor")
	requireCode(t, res, services.ExitSystem)
	requireErrorCode(t, res, "UNEXPECTED_ERROR")
}
