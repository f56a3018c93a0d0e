package edl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"cutagent/internal/services"
)

var clockPattern = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})(?:\.(\d+))?$`)

// ParseTime converts plain seconds, MM:SS, HH:MM:SS or HH:MM:SS.mmm into seconds.
func ParseTime(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if seconds, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
			return 0, invalidTime(value)
		}
		return seconds, nil
	}
	m := clockPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, invalidTime(value)
	}
	var hours int
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])
	var frac float64
	if m[4] != "" {
		frac, _ = strconv.ParseFloat("0."+m[4], 64)
	}
	return float64(hours*3600+minutes*60+secs) + frac, nil
}

func invalidTime(value string) error {
	return services.New(services.CodeInvalidTimeFormat,
		fmt.Sprintf("Invalid time format: %q (use HH:MM:SS, MM:SS, or seconds)", value),
		map[string]any{"value": value})
}

// FormatTime renders seconds as zero-padded HH:MM:SS.mmm.
func FormatTime(seconds float64) string {
	h := int(math.Floor(seconds / 3600))
	m := int(math.Floor(math.Mod(seconds, 3600) / 60))
	s := math.Mod(seconds, 60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// Timecode is a time value as written in the EDL. Both JSON strings and JSON
// numbers decode into it; parsing is deferred so that validation can report
// INVALID_TIME_FORMAT instead of failing the whole document.
type Timecode string

// Seconds parses the timecode.
func (t Timecode) Seconds() (float64, error) {
	return ParseTime(string(t))
}

// UnmarshalJSON accepts "00:01:02.5", "62.5" or 62.5.
func (t *Timecode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timecode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("time value must be a string or number: %w", err)
	}
	*t = Timecode(n.String())
	return nil
}

// Seconds is shorthand for a Timecode built from a float, used by callers that
// synthesise operations (single-op CLI commands, tests).
func Seconds(v float64) Timecode {
	return Timecode(strconv.FormatFloat(v, 'f', -1, 64))
}
