package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, false, false)
	l.timestamp = func() string { return "T" }

	l.Info("loaded %d rows", 3)
	l.Debug("hidden")
	l.Warn("chart %s failed", "days")
	l.Error("boom")

	if got := out.String(); got != "[T] INFO  loaded 3 rows\n" {
		t.Fatalf("stdout = %q", got)
	}
	if !strings.Contains(errOut.String(), "[T] WARN  chart days failed") || !strings.Contains(errOut.String(), "[T] ERROR boom") {
		t.Fatalf("stderr = %q", errOut.String())
	}

	l.SetDebug(true)
	l.Debug("shown")
	if !strings.Contains(out.String(), "DEBUG shown") {
		t.Fatalf("debug not written: %q", out.String())
	}
}

func TestLoggerColor(t *testing.T) {
	var out bytes.Buffer
	l := NewLoggerTo(&out, &out, false, true)
	l.Info("x")
	if !strings.Contains(out.String(), "\033[32mINFO \033[0m") {
		t.Fatalf("missing color codes: %q", out.String())
	}
}

func TestSafeWriteFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.json")
	if err := SafeWriteFile(p, []byte("{}")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "{}" {
		t.Fatalf("read back %q, %v", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestFindDataFileWalksUp(t *testing.T) {
	root := t.TempDir()
	data := filepath.Join(root, "vehicles_us.csv")
	if err := os.WriteFile(data, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	got, err := FindDataFile(nested, "vehicles_us.csv")
	if err != nil || got != data {
		t.Fatalf("FindDataFile = %q, %v", got, err)
	}
	if _, err := FindDataFile(nested, "missing.csv"); err == nil {
		t.Fatalf("expected error for missing dataset")
	}
}

func TestExpandHomeAndPretty(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got := ExpandHome("~/.carlens/exports"); got != filepath.Join("/home/tester", ".carlens/exports") {
		t.Fatalf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Fatalf("ExpandHome abs = %q", got)
	}
	j, _ := PrettyJSON(map[string]int{"a": 1})
	y, _ := PrettyYAML(map[string]int{"a": 1})
	if string(j) != "{\n  \"a\": 1\n}" || string(y) != "a: 1\n" {
		t.Fatalf("pretty = %q / %q", j, y)
	}
}
