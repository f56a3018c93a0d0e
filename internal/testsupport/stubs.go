package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Stubs holds the shell bodies of fake ffmpeg and ffprobe binaries. Empty
// bodies get defaults: ffmpeg copies nothing and writes its last argument as
// an empty file unless it is "-"; ffprobe prints a 10 second audio+video probe.
type Stubs struct {
	FFmpeg  string
	FFprobe string
}

// DefaultProbeJSON is the ffprobe output used by the default stub.
const DefaultProbeJSON = `{"streams":[` +
	`{"index":0,"codec_name":"h264","codec_type":"video","width":1920,"height":1080,"r_frame_rate":"30/1"},` +
	`{"index":1,"codec_name":"aac","codec_type":"audio","sample_rate":"48000","channels":2}],` +
	`"format":{"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"10.000000","size":"1048576","bit_rate":"838860"}}`

const defaultFFmpegStub = `for last; do :; done
case "$*" in
  *-version*) echo "ffmpeg version 7.1-stub Copyright (c) the FFmpeg developers"; exit 0 ;;
  *-filters*) printf ' T.. drawtext          V->V       Draw text\n ... overlay           VV->V      Overlay\n ... xfade             VV->V      Cross fade\n'; exit 0 ;;
esac
[ "$last" = "-" ] || : > "$last"
`

const defaultFFprobeStub = `case "$*" in
  *-version*) echo "ffprobe version 7.1-stub Copyright (c) the FFmpeg developers"; exit 0 ;;
  *packet=pts_time,flags*) printf '0.000000,K__\n2.000000,K__\n4.000000,K__\n'; exit 0 ;;
esac
cat <<'JSON'
` + DefaultProbeJSON + `
JSON
`

// Install writes the stubs into dir and returns their paths.
func (s Stubs) Install(t testing.TB, dir string) (ffmpegPath, ffprobePath string) {
	t.Helper()
	ffmpegBody := s.FFmpeg
	if ffmpegBody == "" {
		ffmpegBody = defaultFFmpegStub
	}
	ffprobeBody := s.FFprobe
	if ffprobeBody == "" {
		ffprobeBody = defaultFFprobeStub
	}
	ffmpegPath = WriteScript(t, filepath.Join(dir, "ffmpeg"), ffmpegBody)
	ffprobePath = WriteScript(t, filepath.Join(dir, "ffprobe"), ffprobeBody)
	return ffmpegPath, ffprobePath
}

// WriteScript writes an executable /bin/sh script.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}
