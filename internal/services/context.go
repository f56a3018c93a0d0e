package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	operationKey contextKey = "op"
	stepKey      contextKey = "step"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the execution run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperation annotates context with the EDL operation kind and its 0-based index.
func WithOperation(ctx context.Context, op string, step int) context.Context {
	if op == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, operationKey, op)
	return context.WithValue(ctx, stepKey, step)
}

// OperationFromContext returns the operation kind and index if present.
func OperationFromContext(ctx context.Context) (string, int, bool) {
	op, ok := ctx.Value(operationKey).(string)
	if !ok || op == "" {
		return "", 0, false
	}
	step, _ := ctx.Value(stepKey).(int)
	return op, step, true
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
