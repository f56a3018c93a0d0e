package services_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cutagent/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "store", "open", "failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"store", "open", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestCodedErrorClassification(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.New(services.CodeFFmpegFailed, "ffmpeg exited with code 1", nil).WithCause(cause)
	wrapped := errors.Join(errors.New("outer"), err)

	if !errors.Is(wrapped, services.ErrExternalTool) {
		t.Fatal("expected FFMPEG_FAILED to classify as external tool error")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if services.CodeOf(wrapped) != services.CodeFFmpegFailed {
		t.Fatalf("unexpected code %q", services.CodeOf(wrapped))
	}
	if !errors.Is(services.Newf(services.CodeTrimStartAfterEnd, "bad"), services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
	if !errors.Is(services.Newf(services.CodeFFmpegTimeout, "slow"), services.ErrTimeout) {
		t.Fatal("expected timeout marker")
	}
}

func TestRecoveryHintsUseContext(t *testing.T) {
	hints := services.RecoveryHints(services.CodeTrimBeyondDuration, map[string]any{"duration": 10.0})
	if len(hints) != 3 || hints[0] != "Source duration is 10.000s; set end to 10.000 or less" {
		t.Fatalf("unexpected hints: %v", hints)
	}
	hints = services.RecoveryHints(services.CodeInputNotFound, map[string]any{"path": "/x.mp4"})
	if hints[0] != "File not found: /x.mp4" {
		t.Fatalf("unexpected hints: %v", hints)
	}
	if got := services.RecoveryHints(services.CodeInvalidStreamType, nil); len(got) != 0 {
		t.Fatalf("expected no hints, got %v", got)
	}
}

func TestErrorJSONPayload(t *testing.T) {
	err := services.New(services.CodeInvalidReference, "Reference $3 not found", map[string]any{"reference": "$3"})
	data, mErr := json.Marshal(err)
	if mErr != nil {
		t.Fatalf("marshal: %v", mErr)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["error"] != true || payload["code"] != "INVALID_REFERENCE" {
		t.Fatalf("unexpected payload: %s", data)
	}
	if ctx := payload["context"].(map[string]any); ctx["reference"] != "$3" {
		t.Fatalf("unexpected context: %v", ctx)
	}
	if len(payload["recovery"].([]any)) == 0 {
		t.Fatal("expected recovery hints")
	}
}

func TestExitCode(t *testing.T) {
	if got := services.ExitCode(nil, services.ExitExecution); got != services.ExitSuccess {
		t.Fatalf("nil: got %d", got)
	}
	if got := services.ExitCode(services.Newf(services.CodeInvalidEDL, "x"), services.ExitValidation); got != services.ExitValidation {
		t.Fatalf("coded: got %d", got)
	}
	if got := services.ExitCode(errors.New("panic-ish"), services.ExitExecution); got != services.ExitSystem {
		t.Fatalf("unexpected: got %d", got)
	}
	if services.Unexpected(errors.New("boom")).Code != services.CodeUnexpected {
		t.Fatal("expected UNEXPECTED_ERROR")
	}
}
