package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default config", DefaultConfig(), false},
		{"json format", Config{Level: "debug", Format: "json"}, false},
		{"text format", Config{Level: "WARN", Format: "TEXT"}, false},
		{"empty values", Config{}, false},
		{"unknown format", Config{Level: "info", Format: "console"}, true},
		{"unknown level", Config{Level: "verbose"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer SetLevel("info")
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("hello", "k", "v")
	if got := buf.String(); !strings.Contains(got, "msg=hello") || !strings.Contains(got, "k=v") {
		t.Errorf("text output = %q", got)
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("test message", "component", "connection")

			entry := decodeEntry(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "test message" {
				t.Errorf("msg = %v, want %q", entry["msg"], "test message")
			}
			if entry["component"] != "connection" {
				t.Errorf("component = %v, want %q", entry["component"], "connection")
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.With("component", "auth").Info("test message")

	entry := decodeEntry(t, buf)
	if entry["component"] != "auth" {
		t.Errorf("component = %v, want %q", entry["component"], "auth")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Debug("debug message")
	l.Info("info message")
	if buf.Len() > 0 {
		t.Error("Debug/Info messages should be filtered when level is warn")
	}

	l.Warn("warn message")
	if buf.Len() == 0 {
		t.Error("Warn message should be logged")
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error")
	defer SetLevel("info")

	l.Info("info message")
	if buf.Len() > 0 {
		t.Error("Info should be filtered at error level")
	}

	SetLevel("debug")
	l.Info("info message after level change")
	if buf.Len() == 0 {
		t.Error("Info should be logged after level changed to debug")
	}
	if level := GetLevel(); level != "debug" {
		t.Errorf("GetLevel() = %q, want %q", level, "debug")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" ERROR ", slog.LevelError, false},
		{"invalid", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetLevel_InvalidKeepsLevel(t *testing.T) {
	defer SetLevel("info")

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) should fail")
	}
	if got := GetLevel(); got != "warn" {
		t.Errorf("GetLevel() = %q, want warn", got)
	}
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	l, buf := newBufferLogger(t, "info")
	defer SetLevel("info")
	SetDefault(l)
	SetDefault(nil)

	Default().Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("Default() did not use the logger set by SetDefault: %q", buf.String())
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("should be discarded", "token", "abc")
	l.With("k", "v").WithContext(context.Background()).Info("also discarded")
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) == nil {
		t.Error("OrDefault(nil) should return the default logger")
	}
	nop := NewNop()
	if OrDefault(nop) != nop {
		t.Error("OrDefault should return the given logger")
	}
}

func TestContextLogger(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithAttemptID(ctx, "wlat-01abc")
	ctx = WithRequestID(ctx, "req-1")

	if AttemptIDFromContext(ctx) != "wlat-01abc" {
		t.Errorf("AttemptIDFromContext() = %q", AttemptIDFromContext(ctx))
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Errorf("RequestIDFromContext() = %q", RequestIDFromContext(ctx))
	}

	L(ctx).Info("enriched")
	entry := decodeEntry(t, buf)
	if entry["attempt_id"] != "wlat-01abc" {
		t.Errorf("attempt_id = %v", entry["attempt_id"])
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should return default logger, got nil")
	}
	if AttemptIDFromContext(context.Background()) != "" {
		t.Error("AttemptIDFromContext should be empty without a value")
	}
}

func TestRedact_SensitiveKeys(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info("login ok", "token", "opaque-session-token", "wallet_address", "0xabc")

	entry := decodeEntry(t, buf)
	if entry["token"] != redactedValue {
		t.Errorf("token = %v, want redacted", entry["token"])
	}
	if entry["wallet_address"] != "0xabc" {
		t.Errorf("wallet_address = %v, should not be redacted", entry["wallet_address"])
	}
}

func TestRedact_BearerValue(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info("request", "header", "Bearer abcdefghijklmnop")

	entry := decodeEntry(t, buf)
	if entry["header"] != "Bearer abc...nop" {
		t.Errorf("header = %v, want masked bearer", entry["header"])
	}
}

func TestRedact_SignatureValue(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	sig := "0x" + strings.Repeat("ab", 65)
	l.Info("signed", "value", sig)

	entry := decodeEntry(t, buf)
	got, _ := entry["value"].(string)
	if got == sig {
		t.Fatal("signature should be masked")
	}
	if want := "0xa...bab"; got != want {
		t.Errorf("value = %q, want %q", got, want)
	}
}

func TestRedact_Group(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info("nested", slog.Group("login", slog.String("token", "opaque"), slog.String("chain", "0x1")))

	entry := decodeEntry(t, buf)
	group, ok := entry["login"].(map[string]any)
	if !ok {
		t.Fatalf("login group missing: %v", entry)
	}
	if group["token"] != redactedValue {
		t.Errorf("login.token = %v, want redacted", group["token"])
	}
	if group["chain"] != "0x1" {
		t.Errorf("login.chain = %v", group["chain"])
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "***"},
		{"abcdefghijkl", "abc...jkl"},
		{"Bearer abcdefghijkl", "Bearer abc...jkl"},
	}
	for _, tt := range tests {
		if got := RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"token", "auth_token", "Signature", "seal_key", "Authorization"} {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false, want true", k)
		}
	}
	for _, k := range []string{"wallet_address", "chain_id", "key"} {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true, want false", k)
		}
	}
}
