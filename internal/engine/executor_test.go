package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutagent/internal/config"
	"cutagent/internal/edl"
	"cutagent/internal/engine"
	"cutagent/internal/fileutil"
	"cutagent/internal/ops"
	"cutagent/internal/services"
	"cutagent/internal/store"
	"cutagent/internal/testsupport"
)

type fixture struct {
	cfg    *config.Config
	tools  *testsupport.FakeTools
	dir    string
	input  string
	output string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	return fixture{
		cfg:    cfg,
		tools:  tools,
		dir:    dir,
		input:  tools.AddMedia(t, filepath.Join(dir, "source.mp4"), 10),
		output: filepath.Join(dir, "renders", "final.mp4"),
	}
}

func (f fixture) edl(t *testing.T, operations ...string) []byte {
	t.Helper()
	return testsupport.EDL(t, []string{f.input}, f.output, operations...)
}

func (f fixture) execute(t *testing.T, raw []byte, opts ...engine.Option) (ops.Result, []engine.Progress, error) {
	t.Helper()
	var events []engine.Progress
	progress := func(step, total int, op, status string) {
		events = append(events, engine.Progress{Step: step, Total: total, Op: op, Status: status})
	}
	res, err := engine.New(f.cfg, f.tools, nil, opts...).Execute(context.Background(), raw, progress)
	return res, events, err
}

func scratchEntries(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.ScratchRoot())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func lastOutput(t *testing.T, tools *testsupport.FakeTools) string {
	t.Helper()
	encodes := tools.Encodes()
	require.NotEmpty(t, encodes)
	args := encodes[len(encodes)-1]
	return args[len(args)-1]
}

func TestExecuteTrim(t *testing.T) {
	f := newFixture(t)

	res, events, err := f.execute(t, f.edl(t, `{"op":"trim","source":"$input.0","start":"1","end":"4"}`))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, f.output, res.OutputPath)
	require.NotNil(t, res.Duration)
	assert.InDelta(t, 3.0, *res.Duration, 1e-9)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))

	assert.Equal(t, []engine.Progress{
		{Step: 1, Total: 1, Op: "trim", Status: engine.StatusRunning},
		{Step: 1, Total: 1, Op: "trim", Status: engine.StatusDone},
	}, events)

	out := lastOutput(t, f.tools)
	assert.Equal(t, "op_000.mp4", filepath.Base(out))
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(out)), "cutagent_"))
	assert.Empty(t, scratchEntries(t, f.cfg))
	after := flock.New(f.output + ".lock")
	locked, err := after.TryLock()
	require.NoError(t, err)
	assert.True(t, locked, "lock should be released after the run")
	require.NoError(t, after.Unlock())
}

func TestExecuteInvalidInputReference(t *testing.T) {
	f := newFixture(t)

	_, events, err := f.execute(t, f.edl(t, `{"op":"trim","source":"$input.5","start":"1","end":"4"}`))
	require.Error(t, err)
	assert.Equal(t, services.CodeInvalidReference, services.CodeOf(err))
	assert.Empty(t, f.tools.Encodes())
	assert.Len(t, events, 1, "only the running event is reported")
	assert.NoFileExists(t, f.output)
	assert.Empty(t, scratchEntries(t, f.cfg))
}

func TestExecuteForwardReference(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, f.edl(t,
		`{"op":"trim","source":"$1","start":"1","end":"4"}`,
		`{"op":"trim","source":"$input.0","start":"1","end":"4"}`,
	))
	assert.Equal(t, services.CodeInvalidReference, services.CodeOf(err))
	assert.Empty(t, f.tools.Encodes())
}

func TestExecuteCrossfadeConcat(t *testing.T) {
	f := newFixture(t)

	res, events, err := f.execute(t, f.edl(t,
		`{"op":"trim","source":"$input.0","start":"0","end":"3"}`,
		`{"op":"trim","source":"$input.0","start":"3","end":"6"}`,
		`{"op":"concat","segments":["$0","$1"],"transition":"crossfade","transition_duration":0.5}`,
	))
	require.NoError(t, err)
	require.NotNil(t, res.Duration)
	assert.InDelta(t, 5.5, *res.Duration, 1e-9)
	assert.Len(t, f.tools.Encodes(), 3)
	assert.Len(t, events, 6)
	assert.Equal(t, engine.Progress{Step: 3, Total: 3, Op: "concat", Status: engine.StatusDone}, events[5])

	args := f.tools.Encodes()[2]
	assert.Contains(t, args, "libx264", "crossfade re-encodes even with codec copy")
	assert.Equal(t, "op_002.mp4", filepath.Base(args[len(args)-1]))
}

func TestExecuteSpeed(t *testing.T) {
	f := newFixture(t)

	res, _, err := f.execute(t, f.edl(t,
		`{"op":"trim","source":"$input.0","start":"0","end":"4"}`,
		`{"op":"speed","source":"$0","factor":2.0}`,
	))
	require.NoError(t, err)
	require.NotNil(t, res.Duration)
	assert.InDelta(t, 2.0, *res.Duration, 1e-9)

	_, _, err = f.execute(t, f.edl(t, `{"op":"speed","source":"$input.0","factor":500}`))
	assert.Equal(t, services.CodeInvalidSpeedFactor, services.CodeOf(err))
}

func TestExecuteEmptyOperations(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, f.edl(t))
	require.Error(t, err)
	coded, ok := services.AsError(err)
	require.True(t, ok)
	assert.Equal(t, services.CodeInvalidEDL, coded.Code)
	assert.Equal(t, "EDL has no operations", coded.Message)
}

func TestExecuteParseFailure(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, []byte(`{"version":"1.0"`))
	assert.Equal(t, services.CodeInvalidEDL, services.CodeOf(err))
}

func TestScratchRemovedOnFailure(t *testing.T) {
	f := newFixture(t)
	f.tools.EncodeErr = services.New(services.CodeFFmpegFailed, "ffmpeg exited with code 1", nil)

	_, _, err := f.execute(t, f.edl(t, `{"op":"trim","source":"$input.0","start":"1","end":"4"}`))
	assert.Equal(t, services.CodeFFmpegFailed, services.CodeOf(err))
	assert.Len(t, f.tools.Encodes(), 1)
	assert.Empty(t, scratchEntries(t, f.cfg))
	assert.NoFileExists(t, f.output)
}

func TestEveryOperationKindExecutes(t *testing.T) {
	for _, kind := range edl.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t)
			res, _, err := f.execute(t, f.edl(t, testsupport.SampleOperation(kind, "$input.0")))
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.FileExists(t, f.output)
			assert.Empty(t, scratchEntries(t, f.cfg))
		})
	}
}

func TestSplitRegistersFirstSegment(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, f.edl(t,
		`{"op":"split","source":"$input.0","points":["6","3"]}`,
		`{"op":"trim","source":"$0","start":"0","end":"2"}`,
	))
	require.NoError(t, err)

	encodes := f.tools.Encodes()
	require.Len(t, encodes, 4)
	assert.Equal(t, "op_000_002.mp4", filepath.Base(encodes[2][len(encodes[2])-1]))
	trimArgs := encodes[3]
	assert.Equal(t, "op_000_000.mp4", filepath.Base(trimArgs[5]))
}

func TestExtractAudioUsesAAC(t *testing.T) {
	f := newFixture(t)
	f.output = filepath.Join(f.dir, "voice.aac")

	_, _, err := f.execute(t, f.edl(t, `{"op":"extract","source":"$input.0","stream":"audio"}`))
	require.NoError(t, err)
	assert.Equal(t, "op_000.aac", filepath.Base(lastOutput(t, f.tools)))
	assert.FileExists(t, f.output)
}

func TestFadeOutputOverride(t *testing.T) {
	f := newFixture(t)
	override := filepath.Join(f.dir, "faded.mp4")

	_, _, err := f.execute(t, f.edl(t,
		`{"op":"fade","source":"$input.0","fade_in":1,"fade_out":1,"output":"`+override+`"}`))
	require.NoError(t, err)
	assert.Equal(t, override, lastOutput(t, f.tools))
	assert.FileExists(t, override)
	assert.FileExists(t, f.output)
}

func TestAnimateLeavesDocumentUnchanged(t *testing.T) {
	f := newFixture(t)
	logo := f.tools.AddMedia(t, filepath.Join(f.dir, "logo.png"), 1)
	raw := testsupport.EDL(t, []string{f.input, logo}, f.output,
		`{"op":"animate","source":"$input.0","layers":[`+
			`{"type":"image","path":"$input.1","start":0,"end":2,"properties":{"opacity":{"keyframes":[{"t":0,"value":0},{"t":1,"value":1}]}}}]}`)
	doc, err := edl.ParseDocument(raw)
	require.NoError(t, err)

	_, err = engine.New(f.cfg, f.tools, nil).ExecuteDocument(context.Background(), doc, nil)
	require.NoError(t, err)

	op, ok := doc.Operations[0].(edl.Animate)
	require.True(t, ok)
	assert.Equal(t, "$input.1", op.Layers[0].Path)
	assert.Contains(t, f.tools.Encodes()[0], logo)
}

func TestDuplicateOperationIDWarns(t *testing.T) {
	f := newFixture(t)

	res, _, err := f.execute(t, f.edl(t,
		`{"op":"trim","id":"clip","source":"$input.0","start":"0","end":"2"}`,
		`{"op":"trim","id":"clip","source":"$input.0","start":"2","end":"5"}`,
		`{"op":"volume","source":"$clip","gain_db":3}`,
	))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `Duplicate operation id "clip"`)
	assert.Equal(t, "op_001.mp4", filepath.Base(f.tools.Encodes()[2][1]))
}

func TestOutputLocked(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.output), 0o755))
	held := flock.New(f.output + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	_, _, err = f.execute(t, f.edl(t, `{"op":"trim","source":"$input.0","start":"1","end":"4"}`))
	assert.Equal(t, services.CodeOutputLocked, services.CodeOf(err))
	assert.Empty(t, f.tools.Encodes())
}

func TestNoOverwrite(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.output), 0o755))
	require.NoError(t, os.WriteFile(f.output, []byte("keep me"), 0o644))

	_, _, err := f.execute(t, f.edl(t, `{"op":"trim","source":"$input.0","start":"1","end":"4"}`),
		engine.WithNoOverwrite(true))
	assert.Equal(t, services.CodeOutputAlreadyExists, services.CodeOf(err))
	assert.Empty(t, f.tools.Encodes())

	data, readErr := os.ReadFile(f.output)
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(data))

	_, _, err = f.execute(t, f.edl(t, `{"op":"trim","source":"$input.0","start":"1","end":"4"}`))
	require.NoError(t, err, "overwrite is the default")
}

func TestHistoryRecordsRuns(t *testing.T) {
	f := newFixture(t)
	st := testsupport.MustOpenStore(t, f.cfg)
	raw := f.edl(t, `{"op":"trim","source":"$input.0","start":"1","end":"4"}`)

	_, _, err := f.execute(t, raw, engine.WithHistory(st))
	require.NoError(t, err)

	f.tools.EncodeErr = services.New(services.CodeFFmpegFailed, "ffmpeg exited with code 1", nil)
	_, _, err = f.execute(t, raw, engine.WithHistory(st))
	require.Error(t, err)

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	statuses := map[store.RunStatus]store.Run{}
	for _, run := range runs {
		statuses[run.Status] = run
		assert.Equal(t, fileutil.HashBytes(raw), run.EDLSHA256)
		assert.Equal(t, f.output, run.OutputPath)
		assert.Equal(t, 1, run.OpCount)
		assert.NotEmpty(t, run.ID)
		assert.False(t, run.FinishedAt.Before(run.StartedAt))
	}
	assert.Contains(t, statuses, store.RunSucceeded)
	require.Contains(t, statuses, store.RunFailed)
	assert.Equal(t, "FFMPEG_FAILED", statuses[store.RunFailed].ErrorCode)
}

func TestCancellationStopsBetweenOperations(t *testing.T) {
	f := newFixture(t)
	st := testsupport.MustOpenStore(t, f.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.tools.OnEncode = func([]string) { cancel() }

	raw := f.edl(t,
		`{"op":"trim","source":"$input.0","start":"0","end":"4"}`,
		`{"op":"speed","source":"$0","factor":2}`,
	)
	_, err := engine.New(f.cfg, f.tools, nil, engine.WithHistory(st)).Execute(ctx, raw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.tools.Encodes(), 1)
	assert.Empty(t, scratchEntries(t, f.cfg))

	runs, err := st.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunCancelled, runs[0].Status)
}
