package tracer

import (
	"context"
	"testing"

	"github.com/zaebee/agents-list-sub002/internal/infra/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupNoopExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "noop"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "test-span")
	if ctx == nil || span == nil {
		t.Fatal("expected span")
	}
	span.End()
}

func TestSetupUnsupportedExporter(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "jaeger"}); err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
}

func TestRecordErrorNil(t *testing.T) {
	_, span := StartSpan(context.Background(), "x")
	defer span.End()
	RecordError(span, nil) // must not panic
}
