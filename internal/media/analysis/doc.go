// Package analysis inspects media content so an agent can plan cuts before
// writing an EDL: scene boundaries, silences, loudness over time, musical
// beats, still frames and a combined summary.
//
// Every pass is a read-only ffmpeg invocation whose filter output (showinfo,
// silencedetect, astats) is parsed from stderr or stdout. The parsers are
// exported and pure so they can be tested without ffmpeg.
package analysis
