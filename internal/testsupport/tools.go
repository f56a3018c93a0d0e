package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"cutagent/internal/ffmpeg"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/services"
)

// FakeTools is an in-memory encode/probe/keyframes/filters collaborator.
// Encode writes the output file named by the last argument and registers a
// probe record for it, so chained operations can probe earlier results.
type FakeTools struct {
	mu sync.Mutex

	infos     map[string]ffprobe.Info
	keyframes map[string][]float64
	probeErrs map[string]error
	filters   map[string]bool

	// Fallback answers probes of existing files that were never registered.
	Fallback ffprobe.Info
	// EncodeErr, when set, fails every Encode after recording the call.
	EncodeErr error
	// OnEncode runs after a successful Encode, e.g. to cancel a context.
	OnEncode func(args []string)

	analyses []scriptedAnalysis
	encodes  [][]string
	analyzed [][]string
	probes   []string
}

type scriptedAnalysis struct {
	match string
	out   ffmpeg.Output
	err   error
}

// MediaOption adjusts a registered probe record.
type MediaOption func(*ffprobe.Info)

// NewFakeTools returns a fake whose fallback is a 10s 1920x1080 clip with audio.
func NewFakeTools() *FakeTools {
	return &FakeTools{
		infos:     make(map[string]ffprobe.Info),
		keyframes: make(map[string][]float64),
		probeErrs: make(map[string]error),
		Fallback:  MediaInfo("", 10),
	}
}

// MediaInfo builds a probe record for an H.264/AAC clip.
func MediaInfo(path string, duration float64, opts ...MediaOption) ffprobe.Info {
	info := ffprobe.Info{
		Path:       path,
		Duration:   duration,
		FormatName: "mov,mp4,m4a,3gp,3g2,mj2",
		SizeBytes:  1 << 20,
		Streams: []ffprobe.StreamInfo{
			{Index: 0, CodecName: "h264", CodecType: "video", Width: 1920, Height: 1080, FPS: 30},
			{Index: 1, CodecName: "aac", CodecType: "audio", SampleRate: 48000, Channels: 2},
		},
	}
	for _, opt := range opts {
		opt(&info)
	}
	return info
}

// WithoutAudio drops the audio stream.
func WithoutAudio() MediaOption {
	return func(info *ffprobe.Info) {
		streams := info.Streams[:0]
		for _, s := range info.Streams {
			if s.CodecType != "audio" {
				streams = append(streams, s)
			}
		}
		info.Streams = streams
	}
}

// WithResolution sets the video stream dimensions.
func WithResolution(width, height int) MediaOption {
	return func(info *ffprobe.Info) {
		for i := range info.Streams {
			if info.Streams[i].CodecType == "video" {
				info.Streams[i].Width, info.Streams[i].Height = width, height
			}
		}
	}
}

// WithFPS sets the video frame rate.
func WithFPS(fps float64) MediaOption {
	return func(info *ffprobe.Info) {
		for i := range info.Streams {
			if info.Streams[i].CodecType == "video" {
				info.Streams[i].FPS = fps
			}
		}
	}
}

// AddMedia creates path on disk and registers its probe record.
func (f *FakeTools) AddMedia(t testing.TB, path string, duration float64, opts ...MediaOption) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	f.SetInfo(path, MediaInfo(path, duration, opts...))
	return path
}

// SetInfo registers a probe record without touching the filesystem.
func (f *FakeTools) SetInfo(path string, info ffprobe.Info) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info.Path = path
	f.infos[path] = info
}

// SetKeyframes registers keyframe timestamps for path.
func (f *FakeTools) SetKeyframes(path string, kfs []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyframes[path] = kfs
}

// SetProbeError makes probes of path fail with err.
func (f *FakeTools) SetProbeError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErrs[path] = err
}

// SetFilters makes the filter list known. Without it every filter is unknown.
func (f *FakeTools) SetFilters(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = make(map[string]bool, len(names))
	for _, n := range names {
		f.filters[n] = true
	}
}

// Encode records args and materialises the output file.
func (f *FakeTools) Encode(ctx context.Context, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.encodes = append(f.encodes, append([]string(nil), args...))
	encodeErr := f.EncodeErr
	hook := f.OnEncode
	f.mu.Unlock()

	if encodeErr != nil {
		return encodeErr
	}
	if len(args) == 0 {
		return fmt.Errorf("fake encode: no arguments")
	}
	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("encoded"), 0o644); err != nil {
		return fmt.Errorf("fake encode: %w", err)
	}
	f.SetInfo(output, f.derive(args))
	if hook != nil {
		hook(args)
	}
	return nil
}

// derive guesses the output probe record: a -ss/-to cut takes the cut length,
// everything else inherits the first known input.
func (f *FakeTools) derive(args []string) ffprobe.Info {
	f.mu.Lock()
	defer f.mu.Unlock()

	info := f.Fallback
	var start, end float64
	var hasCut bool
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-i":
			if known, ok := f.infos[args[i+1]]; ok && info.Path == f.Fallback.Path {
				info = known
			}
		case "-ss":
			start, _ = strconv.ParseFloat(args[i+1], 64)
		case "-to":
			end, _ = strconv.ParseFloat(args[i+1], 64)
			hasCut = true
		}
	}
	if hasCut {
		info.Duration = end - start
	}
	return info
}

// Probe returns the registered record, the fallback for unregistered files
// that exist, or INPUT_NOT_FOUND.
func (f *FakeTools) Probe(_ context.Context, path string) (ffprobe.Info, error) {
	f.mu.Lock()
	f.probes = append(f.probes, path)
	err, failing := f.probeErrs[path]
	info, known := f.infos[path]
	fallback := f.Fallback
	f.mu.Unlock()

	if failing {
		return ffprobe.Info{}, err
	}
	if known {
		return info, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return ffprobe.Info{}, services.New(services.CodeInputNotFound, "Input file not found: "+path,
			map[string]any{"path": path})
	}
	fallback.Path = path
	return fallback, nil
}

// Keyframes returns the registered keyframes for path.
func (f *FakeTools) Keyframes(_ context.Context, path string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keyframes[path], nil
}

// FilterAvailable reports registered filters; known is false until SetFilters.
func (f *FakeTools) FilterAvailable(_ context.Context, name string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filters == nil {
		return false, false
	}
	return f.filters[name], true
}

// SetAnalysis scripts the answer of Analyze calls whose joined arguments
// contain match. Earlier registrations win.
func (f *FakeTools) SetAnalysis(match string, out ffmpeg.Output, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, scriptedAnalysis{match: match, out: out, err: err})
}

// Analyze records args and returns the first scripted answer that matches,
// or empty output.
func (f *FakeTools) Analyze(ctx context.Context, args []string) (ffmpeg.Output, error) {
	if err := ctx.Err(); err != nil {
		return ffmpeg.Output{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzed = append(f.analyzed, append([]string(nil), args...))
	joined := strings.Join(args, " ")
	for _, a := range f.analyses {
		if strings.Contains(joined, a.match) {
			return a.out, a.err
		}
	}
	return ffmpeg.Output{}, nil
}

// ImageSize answers with the registered resolution of path, or 1920x1080
// for existing unregistered files.
func (f *FakeTools) ImageSize(_ context.Context, path string) (int, int, error) {
	f.mu.Lock()
	info, known := f.infos[path]
	f.mu.Unlock()
	if known {
		w, h := info.Resolution()
		return w, h, nil
	}
	if _, err := os.Stat(path); err != nil {
		return 0, 0, services.New(services.CodeInputNotFound, "Input file not found: "+path,
			map[string]any{"path": path})
	}
	return 1920, 1080, nil
}

// Analyses returns every Analyze argument list, in call order.
func (f *FakeTools) Analyses() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.analyzed))
	for i, args := range f.analyzed {
		out[i] = append([]string(nil), args...)
	}
	return out
}

// Encodes returns a copy of every Encode argument list, in call order.
func (f *FakeTools) Encodes() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.encodes))
	for i, args := range f.encodes {
		out[i] = append([]string(nil), args...)
	}
	return out
}

// ProbeCalls returns every probed path, in call order.
func (f *FakeTools) ProbeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probes...)
}
