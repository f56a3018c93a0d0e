package validation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"cutagent/internal/animation"
	"cutagent/internal/edl"
	"cutagent/internal/logging"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/ops"
	"cutagent/internal/services"
)

// Tools is the read-only collaborator surface used during validation.
type Tools interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
	// FilterAvailable reports whether ffmpeg provides the named filter.
	// known is false when the filter list could not be determined.
	FilterAvailable(ctx context.Context, name string) (available, known bool)
}

// Validator checks EDL documents without executing them.
type Validator struct {
	tools  Tools
	logger *slog.Logger
}

// New returns a Validator backed by tools.
func New(tools Tools, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{tools: tools, logger: logging.NewComponentLogger(logger, "validation")}
}

// Validate parses raw and validates the result. A parse failure is reported
// as the only error.
func (v *Validator) Validate(ctx context.Context, raw []byte) Result {
	doc, err := edl.ParseDocument(raw)
	if err != nil {
		var res Result
		res.addErr(err)
		v.logger.Debug("edl rejected by parser", logging.String(logging.FieldErrorCode, string(services.CodeOf(err))))
		return res
	}
	return v.ValidateDocument(ctx, doc)
}

// ValidateDocument validates a parsed document.
func (v *Validator) ValidateDocument(ctx context.Context, doc *edl.Document) Result {
	p := &pass{
		ctx:       ctx,
		tools:     v.tools,
		doc:       doc,
		res:       &Result{},
		table:     edl.NewTable(doc.Inputs),
		declared:  make(map[string]bool, len(doc.Inputs)),
		probed:    make(map[string]ffprobe.Info, len(doc.Inputs)),
		estimates: make(map[int]outcome, len(doc.Operations)),
	}
	p.checkInputs()

	var last outcome
	for idx, op := range doc.Operations {
		last = p.operation(idx, op)
		p.estimates[idx] = last
		if id := op.OpID(); p.table.Record(idx, id, placeholder(idx)) {
			p.res.addOpWarning(idx, services.CodeDuplicateOperationID,
				fmt.Sprintf("Duplicate operation id %q; $%s now refers to this operation", id, id),
				map[string]any{"id": id})
		}
	}
	p.res.EstimatedDuration = last.duration
	p.checkOutputDir()

	v.logger.Debug("edl validated",
		logging.Int("operations", len(doc.Operations)),
		logging.Int("errors", len(p.res.Errors)),
		logging.Int("warnings", len(p.res.Warnings)),
	)
	return *p.res
}

// outcome is what validation knows about an operation's output.
type outcome struct {
	duration *float64
	info     *ffprobe.Info
}

// source is a resolved reference plus whatever is known about it.
type source struct {
	ref  string
	path string
	outcome
}

type pass struct {
	ctx       context.Context
	tools     Tools
	doc       *edl.Document
	res       *Result
	table     *edl.Table
	declared  map[string]bool
	probed    map[string]ffprobe.Info
	estimates map[int]outcome
}

func placeholder(idx int) string {
	return fmt.Sprintf("<output of operation %d>", idx)
}

func seconds(v float64) *float64 { return &v }

func (p *pass) checkInputs() {
	for _, path := range p.doc.Inputs {
		if p.declared[path] {
			continue
		}
		p.declared[path] = true
		if _, err := os.Stat(path); err != nil {
			p.res.addError(services.CodeInputNotFound, "Input file not found: "+path,
				map[string]any{"path": path})
			continue
		}
		info, err := p.tools.Probe(p.ctx, path)
		if err != nil {
			p.res.addErr(err)
			continue
		}
		p.probed[path] = info
	}
}

func (p *pass) checkOutputDir() {
	dir := filepath.Dir(p.doc.Output.Path)
	if dir == "." {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		p.res.addWarning(services.CodeOutputDirNotFound,
			fmt.Sprintf("Output directory does not exist: %s (will be created)", dir),
			map[string]any{"path": dir})
	}
}

// resolve checks one reference field. ok is false when the reference cannot
// be used; the problem has already been recorded.
func (p *pass) resolve(idx int, value string) (source, bool) {
	res, err := p.table.Resolve(value)
	if err != nil {
		p.res.addOpErr(idx, err)
		return source{ref: value}, false
	}
	src := source{ref: value, path: res.Path}
	switch res.Ref.Kind {
	case edl.RefOp, edl.RefName:
		src.outcome = p.estimates[res.OpIndex]
	case edl.RefInput:
		p.fromInput(&src)
	default:
		if p.declared[res.Path] {
			p.fromInput(&src)
			break
		}
		if _, err := os.Stat(res.Path); err != nil {
			p.res.addOpErr(idx, services.New(services.CodeInputNotFound, "Source file not found: "+res.Path,
				map[string]any{"path": res.Path}))
			return src, false
		}
	}
	return src, true
}

func (p *pass) fromInput(src *source) {
	info, ok := p.probed[src.path]
	if !ok {
		return
	}
	src.info = &info
	src.duration = seconds(info.Duration)
}

func (p *pass) requireFilter(idx int, kind edl.Kind, name string) {
	available, known := p.tools.FilterAvailable(p.ctx, name)
	if !known || available {
		return
	}
	p.res.addOpWarning(idx, services.CodeFilterUnavailable,
		fmt.Sprintf("ffmpeg filter %q is not available; %s will fail at execution", name, kind),
		map[string]any{"filter": name, "operation": string(kind)})
}

func (p *pass) requireAudio(idx int, src source) {
	if src.info == nil {
		return
	}
	if err := ops.RequireAudio(src.ref, *src.info); err != nil {
		p.res.addOpErr(idx, err)
	}
}

func (p *pass) operation(idx int, op edl.Operation) outcome {
	switch op := op.(type) {
	case edl.Trim:
		return p.trim(idx, op)
	case edl.Split:
		return p.split(idx, op)
	case edl.Concat:
		return p.concat(idx, op)
	case edl.Reorder:
		return p.reorder(idx, op)
	case edl.Extract:
		return p.extract(idx, op)
	case edl.Fade:
		return p.fade(idx, op)
	case edl.Speed:
		return p.speed(idx, op)
	case edl.MixAudio:
		return p.mixAudio(idx, op)
	case edl.Volume:
		return p.volume(idx, op)
	case edl.ReplaceAudio:
		return p.replaceAudio(idx, op)
	case edl.Normalize:
		return p.normalize(idx, op)
	case edl.Text:
		return p.text(idx, op)
	case edl.Animate:
		return p.animate(idx, op)
	default:
		p.res.addOpErr(idx, services.New(services.CodeUnknownOperation,
			fmt.Sprintf("Unknown operation: %s", op.Kind()),
			map[string]any{"operation": string(op.Kind()), "supported": edl.KindNames()}))
		return outcome{}
	}
}

func (p *pass) trim(idx int, op edl.Trim) outcome {
	src, ok := p.resolve(idx, op.Source)
	start, err := op.Start.Seconds()
	if err != nil {
		p.res.addOpErr(idx, err)
		return outcome{}
	}
	end, err := op.End.Seconds()
	if err != nil {
		p.res.addOpErr(idx, err)
		return outcome{}
	}
	if err := ops.CheckTrimRange(op.Start, op.End, start, end); err != nil {
		p.res.addOpErr(idx, err)
		return outcome{}
	}
	if ok && src.duration != nil {
		clamped, warning, err := ops.ClampTrimEnd(op.Source, op.Start, op.End, start, end, *src.duration)
		if err != nil {
			p.res.addOpErr(idx, err)
			return outcome{}
		}
		if warning != "" {
			p.res.addOpWarning(idx, services.CodeTrimEndClamped, warning,
				map[string]any{"end": string(op.End), "duration": *src.duration})
		}
		end = clamped
	}
	return outcome{duration: seconds(end - start), info: src.info}
}

func (p *pass) split(idx int, op edl.Split) outcome {
	src, _ := p.resolve(idx, op.Source)
	points := make([]float64, 0, len(op.Points))
	parsed := true
	for _, pt := range op.Points {
		sec, err := pt.Seconds()
		if err != nil {
			p.res.addOpErr(idx, err)
			parsed = false
			continue
		}
		if src.duration != nil {
			if err := ops.CheckSplitPoint(op.Source, sec, *src.duration); err != nil {
				p.res.addOpErr(idx, err)
			}
		}
		points = append(points, sec)
	}
	switch {
	case !parsed:
		return outcome{info: src.info}
	case len(points) == 0:
		return src.outcome
	}
	sort.Float64s(points)
	return outcome{duration: seconds(points[0]), info: src.info}
}

// segments resolves every segment reference in order.
func (p *pass) segments(idx int, refs []string) []source {
	out := make([]source, 0, len(refs))
	for _, ref := range refs {
		src, _ := p.resolve(idx, ref)
		out = append(out, src)
	}
	return out
}

func (p *pass) concat(idx int, op edl.Concat) outcome {
	if err := ops.CheckSegments(edl.KindConcat, op.Segments); err != nil {
		p.res.addOpErr(idx, err)
		return outcome{}
	}
	srcs := p.segments(idx, op.Segments)

	td := op.TransitionSeconds()
	if op.Transition != nil {
		if err := ops.CheckTransition(op.Transition, td, len(op.Segments)); err != nil {
			p.res.addOpErr(idx, err)
		}
	} else if op.TransitionDuration != nil {
		if err := ops.CheckTransitionDuration(td); err != nil {
			p.res.addOpErr(idx, err)
		}
	}
	crossfade := op.Crossfade()
	if crossfade {
		p.requireFilter(idx, edl.KindConcat, "xfade")
		if td > 0 {
			for i, src := range srcs {
				if src.duration == nil {
					continue
				}
				if err := ops.CheckCrossfadeSegment(i, *src.duration, td); err != nil {
					p.res.addOpErr(idx, err)
				}
			}
		}
	}
	p.checkResolutions(idx, srcs)

	total, known := 0.0, true
	for _, src := range srcs {
		if src.duration == nil {
			known = false
			break
		}
		total += *src.duration
	}
	out := outcome{info: srcs[0].info}
	if known {
		if crossfade {
			total -= float64(len(srcs)-1) * td
		}
		out.duration = seconds(total)
	}
	return out
}

// checkResolutions warns when known segment resolutions differ.
func (p *pass) checkResolutions(idx int, srcs []source) {
	var seen []string
	for _, src := range srcs {
		if src.info == nil {
			continue
		}
		w, h := src.info.Resolution()
		if w == 0 || h == 0 {
			continue
		}
		if res := fmt.Sprintf("%dx%d", w, h); !slices.Contains(seen, res) {
			seen = append(seen, res)
		}
	}
	if len(seen) > 1 {
		p.res.addOpWarning(idx, services.CodeResolutionMismatch,
			fmt.Sprintf("Segments have different resolutions (%v); output may be scaled or fail to concatenate", seen),
			map[string]any{"resolutions": seen})
	}
}

func (p *pass) reorder(idx int, op edl.Reorder) outcome {
	if err := ops.CheckSegments(edl.KindReorder, op.Segments); err != nil {
		p.res.addOpErr(idx, err)
		return outcome{}
	}
	srcs := p.segments(idx, op.Segments)
	if len(op.Order) == 0 {
		p.res.addOpErr(idx, services.New(services.CodeInvalidEDL, "reorder requires a non-empty order",
			map[string]any{"operation": string(edl.KindReorder)}).
			WithRecovery("List at least one segment index in 'order'"))
		return outcome{}
	}

	total, known, inRange := 0.0, true, true
	for _, i := range op.Order {
		if err := ops.CheckReorderIndex(i, len(srcs)); err != nil {
			p.res.addOpErr(idx, err)
			inRange = false
			continue
		}
		if srcs[i].duration == nil {
			known = false
			continue
		}
		total += *srcs[i].duration
	}
	if !inRange {
		return outcome{}
	}
	out := outcome{info: srcs[op.Order[0]].info}
	if known {
		out.duration = seconds(total)
	}
	return out
}

func (p *pass) extract(idx int, op edl.Extract) outcome {
	src, _ := p.resolve(idx, op.Source)
	if err := ops.CheckStream(op.Stream); err != nil {
		p.res.addOpErr(idx, err)
		return outcome{}
	}
	out := outcome{duration: src.duration}
	if src.info != nil {
		info := *src.info
		info.Streams = nil
		for _, s := range src.info.Streams {
			if s.CodecType == op.Stream {
				info.Streams = append(info.Streams, s)
			}
		}
		out.info = &info
	}
	return out
}

func (p *pass) fade(idx int, op edl.Fade) outcome {
	src, _ := p.resolve(idx, op.Source)
	duration := -1.0
	if src.duration != nil {
		duration = *src.duration
	}
	if err := ops.CheckFade(op.FadeIn, op.FadeOut, duration); err != nil {
		p.res.addOpErr(idx, err)
	}
	return src.outcome
}

func (p *pass) speed(idx int, op edl.Speed) outcome {
	src, _ := p.resolve(idx, op.Source)
	if err := ops.CheckSpeedFactor(op.Factor); err != nil {
		p.res.addOpErr(idx, err)
		return outcome{info: src.info}
	}
	out := outcome{info: src.info}
	if src.duration != nil {
		out.duration = seconds(*src.duration / op.Factor)
	}
	return out
}

func (p *pass) mixAudio(idx int, op edl.MixAudio) outcome {
	src, _ := p.resolve(idx, op.Source)
	p.resolve(idx, op.Audio)
	if err := ops.CheckMixLevel(op.MixLevel); err != nil {
		p.res.addOpErr(idx, err)
	}
	p.requireAudio(idx, src)
	return src.outcome
}

func (p *pass) volume(idx int, op edl.Volume) outcome {
	src, _ := p.resolve(idx, op.Source)
	if err := ops.CheckGain(op.GainDB); err != nil {
		p.res.addOpErr(idx, err)
	}
	p.requireAudio(idx, src)
	return src.outcome
}

// replaceAudio forgets stream facts: the new audio track is not probed here.
func (p *pass) replaceAudio(idx int, op edl.ReplaceAudio) outcome {
	src, _ := p.resolve(idx, op.Source)
	p.resolve(idx, op.Audio)
	return outcome{duration: src.duration}
}

func (p *pass) normalize(idx int, op edl.Normalize) outcome {
	src, _ := p.resolve(idx, op.Source)
	if err := ops.CheckNormalizeTarget(op.TargetLUFS, op.TruePeakDBTP); err != nil {
		p.res.addOpErr(idx, err)
	}
	p.requireAudio(idx, src)
	return src.outcome
}

func (p *pass) text(idx int, op edl.Text) outcome {
	src, _ := p.resolve(idx, op.Source)
	if len(op.Entries) == 0 {
		p.res.addOpErr(idx, ops.CheckTextEntries(nil))
		return src.outcome
	}
	for i, entry := range op.Entries {
		if err := ops.CheckTextEntry(i, entry); err != nil {
			p.res.addOpErr(idx, err)
		}
	}
	p.requireFilter(idx, edl.KindText, "drawtext")
	return src.outcome
}

func (p *pass) animate(idx int, op edl.Animate) outcome {
	src, _ := p.resolve(idx, op.Source)
	if len(op.Layers) == 0 {
		p.res.addOpErr(idx, ops.CheckLayers(nil))
		return src.outcome
	}
	var hasText, hasImage bool
	for i, layer := range op.Layers {
		if err := ops.CheckLayer(i, layer); err != nil {
			p.res.addOpErr(idx, err)
		}
		switch layer.Type {
		case edl.LayerText:
			hasText = true
		case edl.LayerImage:
			hasImage = true
			if layer.Path != "" {
				p.resolve(idx, layer.Path)
			}
		}
		p.checkKeyframeWindow(idx, i, layer)
	}
	if hasText {
		p.requireFilter(idx, edl.KindAnimate, "drawtext")
	}
	if hasImage {
		p.requireFilter(idx, edl.KindAnimate, "overlay")
	}
	return src.outcome
}

// checkKeyframeWindow warns about keyframes outside the layer's visible interval.
func (p *pass) checkKeyframeWindow(idx, layerIdx int, layer edl.Layer) {
	for _, name := range ops.PropertyNames(layer) {
		for _, kf := range layer.Properties[name].Keyframes {
			if kf.T >= layer.Start && kf.T <= layer.End {
				continue
			}
			p.res.addOpWarning(idx, services.CodeKeyframeOutsideLayer,
				fmt.Sprintf("Layer %d: keyframe t=%s on %q is outside the layer window [%s, %s]",
					layerIdx, animation.Num(kf.T), name, animation.Num(layer.Start), animation.Num(layer.End)),
				map[string]any{"layer_index": layerIdx, "property": name, "t": kf.T})
		}
	}
}
