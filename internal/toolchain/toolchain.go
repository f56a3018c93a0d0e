package toolchain

import (
	"context"
	"log/slog"
	"sync"

	"cutagent/internal/config"
	"cutagent/internal/deps"
	"cutagent/internal/ffmpeg"
	"cutagent/internal/logging"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/store"
)

// Toolchain resolves ffmpeg and ffprobe lazily and serves probe, encode,
// keyframe and filter queries against them.
type Toolchain struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	ffmpegOnce sync.Once
	ffmpegBin  deps.Binary
	ffmpegErr  error

	ffprobeOnce sync.Once
	ffprobeBin  deps.Binary
	ffprobeErr  error

	filtersOnce  sync.Once
	filters      map[string]bool
	filtersKnown bool
}

// New returns a Toolchain for cfg. st may be nil, which disables the probe
// cache.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Toolchain {
	if logger == nil {
		logger = logging.NewNop()
	}
	if st != nil && (!cfg.Store.Enabled || !cfg.Store.ProbeCache) {
		st = nil
	}
	return &Toolchain{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "toolchain"),
	}
}

// FFmpeg returns the resolved ffmpeg binary.
func (t *Toolchain) FFmpeg() (deps.Binary, error) {
	t.ffmpegOnce.Do(func() {
		t.ffmpegBin, t.ffmpegErr = deps.Locate("ffmpeg", t.cfg.FFmpeg.FFmpegPath, t.cfg.FFmpeg.BinaryDir)
		if t.ffmpegErr == nil {
			t.logger.Debug("ffmpeg resolved",
				logging.String("path", t.ffmpegBin.Path),
				logging.String("source", t.ffmpegBin.Source))
		}
	})
	return t.ffmpegBin, t.ffmpegErr
}

// FFprobe returns the resolved ffprobe binary.
func (t *Toolchain) FFprobe() (deps.Binary, error) {
	t.ffprobeOnce.Do(func() {
		t.ffprobeBin, t.ffprobeErr = deps.Locate("ffprobe", t.cfg.FFmpeg.FFprobePath, t.cfg.FFmpeg.BinaryDir)
		if t.ffprobeErr == nil {
			t.logger.Debug("ffprobe resolved",
				logging.String("path", t.ffprobeBin.Path),
				logging.String("source", t.ffprobeBin.Source))
		}
	})
	return t.ffprobeBin, t.ffprobeErr
}

func (t *Toolchain) runner() (*ffmpeg.Runner, error) {
	bin, err := t.FFmpeg()
	if err != nil {
		return nil, err
	}
	return &ffmpeg.Runner{Binary: bin.Path, Timeout: t.cfg.EncodeTimeout(), Logger: t.logger}, nil
}

// Encode runs ffmpeg with args.
func (t *Toolchain) Encode(ctx context.Context, args []string) error {
	runner, err := t.runner()
	if err != nil {
		return err
	}
	return runner.Run(ctx, args)
}

// Analyze runs an ffmpeg analysis pass and returns everything it printed.
func (t *Toolchain) Analyze(ctx context.Context, args []string) (ffmpeg.Output, error) {
	runner, err := t.runner()
	if err != nil {
		return ffmpeg.Output{}, err
	}
	return runner.Analyze(ctx, args)
}

// ImageSize reports the pixel dimensions of a still image.
func (t *Toolchain) ImageSize(ctx context.Context, path string) (int, int, error) {
	bin, err := t.FFprobe()
	if err != nil {
		return 0, 0, err
	}
	return ffprobe.ImageSize(ctx, bin.Path, path, t.cfg.ProbeTimeout())
}

// Keyframes lists the keyframe timestamps of path's first video stream.
func (t *Toolchain) Keyframes(ctx context.Context, path string) ([]float64, error) {
	bin, err := t.FFprobe()
	if err != nil {
		return nil, err
	}
	return ffprobe.Keyframes(ctx, bin.Path, path, t.cfg.ProbeTimeout())
}

// Probe inspects path, consulting the probe cache first when one is
// configured. Cache failures are logged and never fail the probe.
func (t *Toolchain) Probe(ctx context.Context, path string) (ffprobe.Info, error) {
	stat, err := ffprobe.CheckInput(path)
	if err != nil {
		return ffprobe.Info{}, err
	}
	stamp := store.FileStamp{Size: stat.Size(), ModTime: stat.ModTime()}
	logger := logging.WithContext(ctx, t.logger)

	if t.store != nil {
		info, ok, err := t.store.LookupProbe(ctx, path, stamp)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "probe cache lookup failed", "probe_cache_lookup",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is probed again"))
		case ok:
			logger.Debug("probe cache hit", logging.String("path", path))
			return info, nil
		}
	}

	bin, err := t.FFprobe()
	if err != nil {
		return ffprobe.Info{}, err
	}
	info, err := ffprobe.Probe(ctx, bin.Path, path, t.cfg.ProbeTimeout())
	if err != nil {
		return ffprobe.Info{}, err
	}

	if t.store != nil {
		if err := t.store.SaveProbe(ctx, path, stamp, info); err != nil {
			logging.WarnWithContext(logger, "probe cache save failed", "probe_cache_save",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next probe of this file runs ffprobe again"))
		}
	}
	return info, nil
}

// FilterAvailable reports whether ffmpeg lists the named filter. known is
// false when filter probing is disabled or the list could not be read. The
// list is read once per process and ignores cancellation of ctx.
func (t *Toolchain) FilterAvailable(ctx context.Context, name string) (available, known bool) {
	t.filtersOnce.Do(func() { t.loadFilters(context.WithoutCancel(ctx)) })
	if !t.filtersKnown {
		return false, false
	}
	return t.filters[name], true
}

func (t *Toolchain) loadFilters(ctx context.Context) {
	if !t.cfg.FFmpeg.FilterProbe {
		return
	}
	runner, err := t.runner()
	if err != nil {
		t.logger.Debug("filter list unavailable", logging.Error(err))
		return
	}
	filters, err := runner.Filters(ctx)
	if err != nil {
		logging.WarnWithContext(t.logger, "ffmpeg filter listing failed", "filter_probe",
			logging.Error(err),
			logging.String(logging.FieldImpact, "filter availability is not checked"))
		return
	}
	t.filters = filters
	t.filtersKnown = true
}

// Versions reports the first line of `-version` for each binary that
// resolves. Missing binaries are omitted.
func (t *Toolchain) Versions(ctx context.Context) map[string]string {
	versions := make(map[string]string, 2)
	if runner, err := t.runner(); err == nil {
		if v, err := runner.Version(ctx); err == nil {
			versions["ffmpeg"] = v
		}
	}
	if bin, err := t.FFprobe(); err == nil {
		if v, err := ffmpeg.VersionOf(ctx, "ffprobe", bin.Path, t.cfg.ProbeTimeout()); err == nil {
			versions["ffprobe"] = v
		}
	}
	return versions
}
