package validation

import (
	"encoding/json"
	"fmt"

	"cutagent/internal/edl"
	"cutagent/internal/services"
)

// Issue is one validation error or warning.
type Issue struct {
	Code    services.Code  `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

// Result collects the issues found in a document and, when every step of the
// chain it depends on is known, the estimated output duration.
type Result struct {
	Errors            []Issue
	Warnings          []Issue
	EstimatedDuration *float64
}

// Valid reports whether no errors were recorded. Warnings never affect validity.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Codes returns the error codes in the order they were recorded.
func (r Result) Codes() []services.Code {
	codes := make([]services.Code, 0, len(r.Errors))
	for _, issue := range r.Errors {
		codes = append(codes, issue.Code)
	}
	return codes
}

// WarningCodes returns the warning codes in the order they were recorded.
func (r Result) WarningCodes() []services.Code {
	codes := make([]services.Code, 0, len(r.Warnings))
	for _, issue := range r.Warnings {
		codes = append(codes, issue.Code)
	}
	return codes
}

// MarshalJSON emits {valid, errors, warnings, estimated_duration?,
// estimated_duration_formatted?} with empty lists rather than null.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Valid             bool     `json:"valid"`
		Errors            []Issue  `json:"errors"`
		Warnings          []Issue  `json:"warnings"`
		EstimatedDuration *float64 `json:"estimated_duration,omitempty"`
		EstimatedFormat   string   `json:"estimated_duration_formatted,omitempty"`
	}{
		Valid:             r.Valid(),
		Errors:            nonNil(r.Errors),
		Warnings:          nonNil(r.Warnings),
		EstimatedDuration: r.EstimatedDuration,
	}
	if r.EstimatedDuration != nil {
		out.EstimatedFormat = edl.FormatTime(*r.EstimatedDuration)
	}
	return json.Marshal(out)
}

func nonNil(issues []Issue) []Issue {
	if issues == nil {
		return []Issue{}
	}
	return issues
}

func (r *Result) addError(code services.Code, message string, context map[string]any) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: message, Context: orEmpty(context)})
}

func (r *Result) addWarning(code services.Code, message string, context map[string]any) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: message, Context: orEmpty(context)})
}

// addErr records a coded error as an issue. Errors without a code are
// reported as UNEXPECTED_ERROR.
func (r *Result) addErr(err error) {
	coded := services.Unexpected(err)
	r.addError(coded.Code, coded.Message, copyContext(coded.Context))
}

// addOpErr records err against operation idx.
func (r *Result) addOpErr(idx int, err error) {
	coded := services.Unexpected(err)
	ctx := copyContext(coded.Context)
	ctx["operation_index"] = idx
	r.addError(coded.Code, fmt.Sprintf("Op %d: %s", idx, coded.Message), ctx)
}

func (r *Result) addOpWarning(idx int, code services.Code, message string, context map[string]any) {
	ctx := copyContext(context)
	ctx["operation_index"] = idx
	r.addWarning(code, fmt.Sprintf("Op %d: %s", idx, message), ctx)
}

func copyContext(src map[string]any) map[string]any {
	out := make(map[string]any, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}

func orEmpty(ctx map[string]any) map[string]any {
	if ctx == nil {
		return map[string]any{}
	}
	return ctx
}
