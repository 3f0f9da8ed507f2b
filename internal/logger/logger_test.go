package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		wantErr bool
	}{
		{"local", "", false},
		{"prod", "warn", false},
		{"staging", "", true},
		{"dev", "loud", true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger(%q, %q) error = %v, wantErr %v", tt.env, tt.level, err, tt.wantErr)
			}
			if err == nil && tt.level == "warn" && l.Core().Enabled(zapcore.InfoLevel) {
				t.Error("expected info disabled at warn level")
			}
		})
	}
}

func TestNewConfig_ServiceFields(t *testing.T) {
	cfg, err := newConfig("prod", "")
	if err != nil {
		t.Fatalf("newConfig: %v", err)
	}
	if cfg.Encoding != "json" {
		t.Errorf("expected json encoding, got %q", cfg.Encoding)
	}
	if cfg.Sampling != nil {
		t.Error("expected sampling disabled in prod")
	}
	if cfg.InitialFields["service"] != ServiceName || cfg.InitialFields["env"] != "prod" {
		t.Errorf("unexpected initial fields %v", cfg.InitialFields)
	}

	local, err := newConfig("local", "debug")
	if err != nil {
		t.Fatalf("newConfig: %v", err)
	}
	if local.Encoding != "console" || !local.Level.Enabled(zapcore.DebugLevel) {
		t.Errorf("expected console at debug, got %q", local.Encoding)
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger")
	}
}

func TestWith_AddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ctx = With(ctx, zap.String("session_id", "s-1"))
	FromContext(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["session_id"]; got != "s-1" {
		t.Errorf("expected session_id field, got %v", got)
	}
}
