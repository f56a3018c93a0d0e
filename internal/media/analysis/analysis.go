package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"cutagent/internal/ffmpeg"
	"cutagent/internal/logging"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/services"
)

// Defaults shared by the CLI flags and Summarize.
const (
	DefaultSceneThreshold     = 0.3
	DefaultSilenceThreshold   = -30.0
	DefaultMinSilenceDuration = 0.5
	DefaultAudioInterval      = 1.0
	DefaultBeatMinInterval    = 0.15
	DefaultEnergyThreshold    = 1.4
	DefaultBeatWindow         = 8
)

// Tools is the collaborator the analysis passes run against.
type Tools interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
	Analyze(ctx context.Context, args []string) (ffmpeg.Output, error)
	Encode(ctx context.Context, args []string) error
	ImageSize(ctx context.Context, path string) (int, int, error)
}

// Analyzer runs content analysis passes.
type Analyzer struct {
	tools  Tools
	logger *slog.Logger
}

// New returns an Analyzer. A nil logger discards output.
func New(tools Tools, logger *slog.Logger) *Analyzer {
	return &Analyzer{tools: tools, logger: logging.NewComponentLogger(logger, "analysis")}
}

// probe checks path exists and returns its metadata.
func (a *Analyzer) probe(ctx context.Context, path string) (ffprobe.Info, error) {
	if _, err := ffprobe.CheckInput(path); err != nil {
		return ffprobe.Info{}, err
	}
	return a.tools.Probe(ctx, path)
}

// analyze runs an analysis pass. A non-zero ffmpeg exit still yields the
// captured output: a file without audio simply reports nothing.
func (a *Analyzer) analyze(ctx context.Context, pass string, args []string) (ffmpeg.Output, error) {
	out, err := a.tools.Analyze(ctx, args)
	if err == nil {
		return out, nil
	}
	if services.CodeOf(err) == services.CodeFFmpegFailed {
		logging.WithContext(ctx, a.logger).Debug("analysis pass exited non-zero",
			logging.String("pass", pass),
			logging.Error(err))
		return out, nil
	}
	return out, err
}

func invalidArgument(message string, context map[string]any) error {
	return services.New(services.CodeInvalidArgument, message, context)
}

// num renders a filter parameter without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func requirePositive(name string, v float64) error {
	if v > 0 && !math.IsInf(v, 0) {
		return nil
	}
	return invalidArgument(fmt.Sprintf("%s must be > 0", name), map[string]any{name: v})
}
