package ffmpeg

import "strings"

// RecoveryHints maps recognizable ffmpeg stderr text to next steps.
func RecoveryHints(stderr string) []string {
	if strings.Contains(stderr, "No such filter") {
		return []string{
			"A required ffmpeg filter is missing from your build (e.g. drawtext needs libfreetype)",
			"Set CUTAGENT_FFMPEG to a ffmpeg binary with the needed filters",
			"Run 'cutagent doctor' to inspect your ffmpeg capabilities",
		}
	}
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "codec not found"), strings.Contains(lower, "unknown encoder"):
		return []string{
			"The required codec is not available in your ffmpeg build",
			"Set CUTAGENT_FFMPEG to a ffmpeg binary with the needed codec, or run 'cutagent doctor'",
		}
	case strings.Contains(lower, "no such file"), strings.Contains(lower, "does not exist"):
		return []string{
			"A referenced file could not be found",
			"Verify all input file paths are correct and accessible",
		}
	case strings.Contains(lower, "permission denied"):
		return []string{
			"Permission denied when accessing a file",
			"Check file permissions for input and output paths",
		}
	}
	return []string{"Check stderr for details", "Verify input file is a valid media file"}
}
