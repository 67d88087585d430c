package tracing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "talentboard-api"})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider returned %v", err)
	}
	if provider.Tracer("x") == nil {
		t.Error("expected a no-op tracer from disabled provider")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"disabled ignores fields", Config{SamplingRate: 7}, nil},
		{"missing service name", Config{Enabled: true, SamplingRate: 0.1}, ErrMissingServiceName},
		{"negative rate", Config{Enabled: true, ServiceName: "api", SamplingRate: -0.1}, ErrInvalidSamplingRate},
		{"rate above one", Config{Enabled: true, ServiceName: "api", SamplingRate: 1.5}, ErrInvalidSamplingRate},
		{"unsupported exporter", Config{Enabled: true, ServiceName: "api", ExporterType: "zipkin"}, ErrUnsupportedExporter},
		{"grpc", Config{Enabled: true, ServiceName: "api", ExporterType: ExporterOTLPGRPC, SamplingRate: 1}, nil},
		{"default exporter", Config{Enabled: true, ServiceName: "api", SamplingRate: 0.25}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewProvider_RejectsInvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, SamplingRate: 0.5})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("expected ErrMissingServiceName, got %v", err)
	}
}

func TestNewProvider_Enabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:  "talentboard-api",
		Enabled:      true,
		Environment:  "test",
		ExporterType: ExporterOTLPHTTP,
		OTLPEndpoint: "localhost:4318",
		SamplingRate: 0.0,
		InsecureMode: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !provider.IsEnabled() {
		t.Error("expected tracing to be enabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestSamplerFor(t *testing.T) {
	if got := samplerFor(1.0).Description(); got != "AlwaysOnSampler" {
		t.Errorf("rate 1.0 sampler = %s", got)
	}
	if got := samplerFor(0.0).Description(); got != "AlwaysOffSampler" {
		t.Errorf("rate 0.0 sampler = %s", got)
	}
	if got := samplerFor(0.5).Description(); got != "TraceIDRatioBased{0.5}" {
		t.Errorf("rate 0.5 sampler = %s", got)
	}
}
