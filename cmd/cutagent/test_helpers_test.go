package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cutagent/internal/config"
	"cutagent/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mediaDir   string
	outDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(testsupport.Stubs{}))

	configPath := filepath.Join(base, "cutagent.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		mediaDir:   filepath.Join(base, "media"),
		outDir:     filepath.Join(base, "out"),
	}
	for _, dir := range []string{env.mediaDir, env.outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// media creates a placeholder media file; the ffprobe stub describes it.
func (e *cliTestEnv) media(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.mediaDir, name)
	testsupport.WriteFile(t, path, 1024)
	return path
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

func (r cliResult) decode(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(r.stdout), &out); err != nil {
		t.Fatalf("stdout is not a JSON object: %v\n%s", err, r.stdout)
	}
	return out
}

func runCLI(t *testing.T, configPath string, stdin string, args ...string) cliResult {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	code := run(context.Background(), cmd)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireCode(t *testing.T, res cliResult, want int) {
	t.Helper()
	if res.code != want {
		t.Fatalf("exit code = %d, want %d\nstdout: %s\nstderr: %s", res.code, want, res.stdout, res.stderr)
	}
}

func requireErrorCode(t *testing.T, res cliResult, want string) {
	t.Helper()
	out := res.decode(t)
	if out["error"] != true || out["code"] != want {
		t.Fatalf("expected error code %s, got %v", want, out)
	}
}

func trimEDL(t *testing.T, input, output string) string {
	t.Helper()
	return string(testsupport.EDL(t, []string{input}, output,
		`{"op":"trim","source":"$input.0","start":"1","end":"4"}`))
}
