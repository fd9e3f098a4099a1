package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "INFO", false},
		{"debug", "DEBUG", false},
		{"WARN", "WARN", false},
		{"warning", "WARN", false},
		{"error", "ERROR", false},
		{"loud", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lvl, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && lvl.String() != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, lvl, tt.want)
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}

	opts.Format = "xml"
	if err := opts.Validate(); err == nil {
		t.Error("expected error for unknown format")
	}

	opts = DefaultOptions()
	opts.File = "jarvis.log"
	opts.MaxSizeMB = 0
	if err := opts.Validate(); err == nil {
		t.Error("expected error for zero max size with a file")
	}
}

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jarvis.log")

	opts := DefaultOptions()
	opts.Format = "json"
	opts.File = path
	if err := Setup(opts); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() {
		_ = Close()
		Init("info")
	})

	With("component", "test").Info("hello", "n", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"msg":"hello"`, `"component":"test"`, `"n":1`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	opts := DefaultOptions()
	opts.Level = "verbose"
	if err := Setup(opts); err == nil {
		t.Error("expected error for unknown level")
	}
	if L() == nil {
		t.Error("L() must never return nil")
	}
}
