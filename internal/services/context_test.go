package services_test

import (
	"context"
	"testing"

	"cutagent/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithOperation(ctx, "trim", 2)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if op, step, ok := services.OperationFromContext(ctx); !ok || op != "trim" || step != 2 {
		t.Fatalf("unexpected operation: %v %v %v", op, step, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithOperation(context.Background(), "", 0)
	if _, _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
	if _, ok := services.RunIDFromContext(services.WithRunID(context.Background(), "")); ok {
		t.Fatal("expected no run id")
	}
}
