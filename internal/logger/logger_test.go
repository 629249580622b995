package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":         InfoLevel,
		"debug":    DebugLevel,
		"WARN":     WarnLevel,
		"critical": FatalLevel,
		" error ":  ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestErrorFileReceivesOnlyErrors(t *testing.T) {
	old := std
	std = newStd()
	defer func() { std = old }()

	var out bytes.Buffer
	SetOutput(&out)

	path := filepath.Join(t.TempDir(), "logs", "errors.log")
	c, err := AddErrorFile(path)
	if err != nil {
		t.Fatalf("add error file: %v", err)
	}

	Info("[Test] all good")
	Error("[Test] broken: %s", "disk")
	c.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	if strings.Contains(string(data), "all good") {
		t.Fatalf("info line leaked into error log: %s", data)
	}
	if !strings.Contains(string(data), "broken: disk") {
		t.Fatalf("error line missing from error log: %s", data)
	}
	if !strings.Contains(out.String(), "all good") {
		t.Fatalf("info line missing from main output: %s", out.String())
	}
}
