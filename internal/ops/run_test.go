package ops_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutagent/internal/edl"
	"cutagent/internal/ops"
	"cutagent/internal/services"
	"cutagent/internal/testsupport"
)

func TestTrimRejectsInvertedRangeWithoutEncoding(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)

	_, err := ops.Trim(context.Background(), tools, ops.TrimRequest{
		Source: src, Start: "00:00:05", End: "00:00:02", Output: filepath.Join(dir, "out.mp4"),
	})
	assert.Equal(t, services.CodeTrimStartAfterEnd, services.CodeOf(err))
	assert.Empty(t, tools.Encodes())
	assert.Empty(t, tools.ProbeCalls())
}

func TestTrimRejectsStartPastClampedEnd(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)

	_, err := ops.Trim(context.Background(), tools, ops.TrimRequest{
		Source: src, Start: "10.01", End: "10.04", Output: filepath.Join(dir, "out.mp4"),
	})
	assert.Equal(t, services.CodeTrimBeyondDuration, services.CodeOf(err))
	assert.Empty(t, tools.Encodes())
}

func TestTrimClampsAndWarnsAboutKeyframes(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)
	tools.SetKeyframes(src, []float64{0, 2, 4, 6, 8})
	out := filepath.Join(dir, "out.mp4")

	res, err := ops.Trim(context.Background(), tools, ops.TrimRequest{
		Source: src, Start: "3", End: "10.03", Output: out, Codec: "copy",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, out, res.OutputPath)
	require.NotNil(t, res.Duration)
	assert.InDelta(t, 7.0, *res.Duration, 1e-9)
	require.Len(t, res.Warnings, 3)
	assert.Contains(t, res.Warnings[0], "clamped to duration")
	assert.Contains(t, res.Warnings[1], "start=00:00:03.000")
	assert.Contains(t, res.Warnings[2], "end=00:00:10.000")

	encodes := tools.Encodes()
	require.Len(t, encodes, 1)
	assert.Equal(t, []string{"-ss", "3", "-to", "10", "-i", src, "-c", "copy", out}, encodes[0])
	assert.FileExists(t, out)
}

func TestTrimSkipsKeyframeCheckWhenReencoding(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)
	tools.SetKeyframes(src, []float64{0, 5})

	res, err := ops.Trim(context.Background(), tools, ops.TrimRequest{
		Source: src, Start: "1", End: "3", Output: filepath.Join(dir, "out.mp4"), Codec: "libx264",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestTrimBeyondDuration(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)

	_, err := ops.Trim(context.Background(), tools, ops.TrimRequest{
		Source: src, Start: "0", End: "00:00:30", Output: filepath.Join(dir, "out.mp4"),
	})
	assert.Equal(t, services.CodeTrimBeyondDuration, services.CodeOf(err))
	assert.Empty(t, tools.Encodes())
}

func TestSplitProducesOrderedSegments(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mkv"), 10)
	prefix := filepath.Join(dir, "part")

	results, err := ops.Split(context.Background(), tools, ops.SplitRequest{
		Source: src, Points: []edl.Timecode{"7", "00:00:03"}, Prefix: prefix, Codec: "copy",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	wantBounds := [][2]float64{{0, 3}, {3, 7}, {7, 10}}
	for i, res := range results {
		assert.Equal(t, ops.SegmentPath(prefix, i, ".mkv"), res.OutputPath)
		assert.InDelta(t, wantBounds[i][1]-wantBounds[i][0], *res.Duration, 1e-9)
		assert.FileExists(t, res.OutputPath)
	}
	assert.Equal(t, filepath.Join(dir, "part_002.mkv"), results[2].OutputPath)
}

func TestSplitPointBeyondDuration(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)

	_, err := ops.Split(context.Background(), tools, ops.SplitRequest{
		Source: src, Points: []edl.Timecode{"12"}, Prefix: filepath.Join(dir, "p"),
	})
	assert.Equal(t, services.CodeSplitPointBeyondDuration, services.CodeOf(err))
	assert.Empty(t, tools.Encodes())
}

func TestConcatDemuxerRemovesListFile(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	listDir := filepath.Join(dir, "lists")
	require.NoError(t, os.MkdirAll(listDir, 0o755))
	a := tools.AddMedia(t, filepath.Join(dir, "a.mp4"), 3)
	b := tools.AddMedia(t, filepath.Join(dir, "b.mp4"), 4)
	out := filepath.Join(dir, "joined.mp4")

	var listBody string
	tools.OnEncode = func(args []string) {
		body, err := os.ReadFile(args[5])
		if err == nil {
			listBody = string(body)
		}
	}

	res, err := ops.Concat(context.Background(), tools, ops.ConcatRequest{
		Segments: []string{a, b}, Output: out, Codec: "copy", ListDir: listDir,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Duration)
	assert.Equal(t, "file '"+a+"'\nfile '"+b+"'\n", listBody)

	encodes := tools.Encodes()
	require.Len(t, encodes, 1)
	assert.Equal(t, []string{"-f", "concat", "-safe", "0", "-i"}, encodes[0][:5])

	entries, err := os.ReadDir(listDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcatEmptySegments(t *testing.T) {
	_, err := ops.Concat(context.Background(), testsupport.NewFakeTools(), ops.ConcatRequest{Output: "x.mp4"})
	assert.Equal(t, services.CodeInvalidEDL, services.CodeOf(err))
}

func TestConcatCrossfade(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	a := tools.AddMedia(t, filepath.Join(dir, "a.mp4"), 5)
	b := tools.AddMedia(t, filepath.Join(dir, "b.mp4"), 5, testsupport.WithResolution(1280, 720))
	transition := edl.TransitionCrossfade

	res, err := ops.Concat(context.Background(), tools, ops.ConcatRequest{
		Segments: []string{a, b}, Output: filepath.Join(dir, "x.mp4"),
		Transition: &transition, TransitionDuration: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Duration)
	assert.InDelta(t, 9.0, *res.Duration, 1e-9)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1920x1080")
}

func TestConcatCrossfadeSegmentTooShort(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	a := tools.AddMedia(t, filepath.Join(dir, "a.mp4"), 5)
	b := tools.AddMedia(t, filepath.Join(dir, "b.mp4"), 0.4)
	transition := edl.TransitionCrossfade

	_, err := ops.Concat(context.Background(), tools, ops.ConcatRequest{
		Segments: []string{a, b}, Output: filepath.Join(dir, "x.mp4"),
		Transition: &transition, TransitionDuration: 0.5,
	})
	coded, ok := services.AsError(err)
	require.True(t, ok)
	assert.Equal(t, services.CodeInvalidTransitionDuration, coded.Code)
	assert.Equal(t, 1, coded.Context["segment_index"])
	assert.Empty(t, tools.Encodes())
}

func TestReorderOutOfRange(t *testing.T) {
	tools := testsupport.NewFakeTools()
	_, err := ops.Reorder(context.Background(), tools, ops.ReorderRequest{
		Segments: []string{"a.mp4", "b.mp4"}, Order: []int{1, 2}, Output: "x.mp4",
	})
	coded, ok := services.AsError(err)
	require.True(t, ok)
	assert.Equal(t, services.CodeReorderIndexOutOfRange, coded.Code)
	assert.Equal(t, 2, coded.Context["invalid_index"])
	assert.Equal(t, []string{"Use indices between 0 and 1"}, coded.Recovery)
}

func TestReorderConcatenatesInOrder(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	a := tools.AddMedia(t, filepath.Join(dir, "a.mp4"), 3)
	b := tools.AddMedia(t, filepath.Join(dir, "b.mp4"), 3)

	_, err := ops.Reorder(context.Background(), tools, ops.ReorderRequest{
		Segments: []string{a, b}, Order: []int{1, 0, 1}, Output: filepath.Join(dir, "x.mp4"), Codec: "libx264",
	})
	require.NoError(t, err)
	encodes := tools.Encodes()
	require.Len(t, encodes, 1)
	assert.Equal(t, []string{"-i", b, "-i", a, "-i", b}, encodes[0][:6])
}

func TestFadeExceedingClip(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 2)

	_, err := ops.Fade(context.Background(), tools, ops.FadeRequest{
		Source: src, Output: filepath.Join(dir, "o.mp4"), FadeIn: 1.5, FadeOut: 1.5,
	})
	assert.Equal(t, services.CodeInvalidFadeDuration, services.CodeOf(err))
	assert.Empty(t, tools.Encodes())
}

func TestSpeedHalvesDuration(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)

	res, err := ops.Speed(context.Background(), tools, ops.SpeedRequest{
		Source: src, Output: filepath.Join(dir, "o.mp4"), Factor: 2, Codec: "copy",
	})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, *res.Duration, 1e-9)
	assert.Contains(t, tools.Encodes()[0], ops.DefaultVideoCodec)
}

func TestAudioOperationsRequireAudio(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "silent.mp4"), 10, testsupport.WithoutAudio())
	out := filepath.Join(dir, "o.mp4")
	ctx := context.Background()

	_, err := ops.Volume(ctx, tools, ops.VolumeRequest{Source: src, Output: out, GainDB: 3})
	assert.Equal(t, services.CodeAudioStreamMissing, services.CodeOf(err))

	_, err = ops.Normalize(ctx, tools, ops.NormalizeRequest{Source: src, Output: out, TargetLUFS: -16, TruePeakDBTP: -1.5})
	assert.Equal(t, services.CodeAudioStreamMissing, services.CodeOf(err))

	_, err = ops.Mix(ctx, tools, ops.MixRequest{Source: src, Audio: src, Output: out, MixLevel: 0.3})
	assert.Equal(t, services.CodeAudioStreamMissing, services.CodeOf(err))

	_, err = ops.ReplaceAudio(ctx, tools, ops.ReplaceAudioRequest{Source: src, Audio: src, Output: out})
	assert.NoError(t, err)
	assert.Len(t, tools.Encodes(), 1)
}

func TestMixLevelCheckedBeforeProbe(t *testing.T) {
	tools := testsupport.NewFakeTools()
	_, err := ops.Mix(context.Background(), tools, ops.MixRequest{Source: "a.mp4", Audio: "b.mp3", Output: "o.mp4", MixLevel: 2})
	assert.Equal(t, services.CodeInvalidMixLevel, services.CodeOf(err))
	assert.Empty(t, tools.ProbeCalls())
}

func TestEncodeFailurePropagates(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 10)
	boom := services.New(services.CodeFFmpegFailed, "ffmpeg exited 1", nil)
	tools.EncodeErr = boom

	_, err := ops.Extract(context.Background(), tools, ops.ExtractRequest{
		Source: src, Stream: edl.StreamAudio, Output: filepath.Join(dir, "o.aac"),
	})
	assert.True(t, errors.Is(err, boom))
}

func TestTextAndAnimateProbeSource(t *testing.T) {
	tools := testsupport.NewFakeTools()
	dir := t.TempDir()
	src := tools.AddMedia(t, filepath.Join(dir, "in.mp4"), 8)
	ctx := context.Background()

	res, err := ops.Text(ctx, tools, ops.TextRequest{
		Source:  src,
		Entries: []edl.TextEntry{{Text: "Hi", Position: edl.PositionCenter, FontSize: 48, FontColor: "white"}},
		Output:  filepath.Join(dir, "t.mp4"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, *res.Duration, 1e-9)

	_, err = ops.Text(ctx, tools, ops.TextRequest{Source: src, Output: filepath.Join(dir, "t2.mp4")})
	assert.Equal(t, services.CodeEmptyTextEntries, services.CodeOf(err))

	res, err = ops.Animate(ctx, tools, ops.AnimateRequest{
		Source: src,
		Layers: []edl.Layer{{Type: edl.LayerText, Text: "Hi", Start: 0, End: 2, FontSize: 48, FontColor: "white"}},
		FPS:    30,
		Output: filepath.Join(dir, "a.mp4"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, *res.Duration, 1e-9)
	last := tools.Encodes()[1]
	assert.Equal(t, []string{"-r", "30"}, last[len(last)-3:len(last)-1])
}
