package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cutagent/internal/services"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.5", "size": "1000", "bit_rate": "32000", "format_name": "mov,mp4"}
}`

func stubFFprobe(t *testing.T, output string) string {
	t.Helper()
	dir := t.TempDir()
	payload := filepath.Join(dir, "payload")
	if err := os.WriteFile(payload, []byte(output), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	bin := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\ncat "+payload+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return bin
}

func touch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}, {CodecType: "audio"}, {CodecType: "audio"}},
		Format:  Format{Duration: "123.45", Size: "1000", BitRate: "32000"},
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 2 {
		t.Fatalf("unexpected stream counts: %d/%d", result.VideoStreamCount(), result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 || result.SizeBytes() != 1000 || result.BitRate() != 32000 {
		t.Fatalf("unexpected format values: %+v", result.Format)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1", BitRate: "nope"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 || result.BitRate() != 0 {
		t.Fatalf("expected zero size and bitrate")
	}
}

func TestFrameRate(t *testing.T) {
	cases := map[string]float64{"30/1": 30, "30000/1001": 29.97, "0/0": 0, "": 0, "abc/1": 0}
	for in, want := range cases {
		if got := FrameRate(in); got != want {
			t.Fatalf("FrameRate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestProbeSummarizesStreams(t *testing.T) {
	bin := stubFFprobe(t, sampleJSON)
	path := touch(t)

	info, err := Probe(context.Background(), bin, path, 5*time.Second)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Duration != 12.5 || info.FormatName != "mov,mp4" || info.SizeBytes != 1000 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if w, h := info.Resolution(); w != 1920 || h != 1080 {
		t.Fatalf("unexpected resolution %dx%d", w, h)
	}
	video, _ := info.VideoStream()
	if video.FPS != 29.97 {
		t.Fatalf("unexpected fps %v", video.FPS)
	}
	audio, ok := info.AudioStream()
	if !ok || audio.SampleRate != 48000 || audio.Channels != 2 || !info.HasAudio() {
		t.Fatalf("unexpected audio stream %+v", audio)
	}
}

func TestProbeErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.mp4")
	if _, err := Probe(context.Background(), "ffprobe", missing, time.Second); services.CodeOf(err) != services.CodeInputNotFound {
		t.Fatalf("expected INPUT_NOT_FOUND, got %v", err)
	}

	bin := stubFFprobe(t, `{"streams": [], "format": {"duration": "0"}}`)
	if _, err := Probe(context.Background(), bin, touch(t), 5*time.Second); services.CodeOf(err) != services.CodeInputInvalidFormat {
		t.Fatalf("expected INPUT_INVALID_FORMAT, got %v", err)
	}
}

func TestKeyframes(t *testing.T) {
	bin := stubFFprobe(t, "2.002,K__\n0.000000,K__\n1.001,___\ngarbage\nx,K\n")
	got, err := Keyframes(context.Background(), bin, touch(t), 5*time.Second)
	if err != nil {
		t.Fatalf("Keyframes: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2.002 {
		t.Fatalf("unexpected keyframes %v", got)
	}
	if Nearest(got, 1.5) != 2.002 || Nearest(nil, 1.5) != 1.5 {
		t.Fatal("unexpected nearest keyframe")
	}
}

func TestImageSize(t *testing.T) {
	bin := stubFFprobe(t, `{"streams": [{"index": 0, "codec_name": "mjpeg", "codec_type": "video", "width": 640, "height": 360}], "format": {}}`)
	w, h, err := ImageSize(context.Background(), bin, touch(t), 5*time.Second)
	if err != nil || w != 640 || h != 360 {
		t.Fatalf("unexpected size %dx%d err=%v", w, h, err)
	}

	bin = stubFFprobe(t, `{"streams": [], "format": {}}`)
	if _, _, err := ImageSize(context.Background(), bin, touch(t), 5*time.Second); services.CodeOf(err) != services.CodeInputInvalidFormat {
		t.Fatalf("expected INPUT_INVALID_FORMAT, got %v", err)
	}
}
