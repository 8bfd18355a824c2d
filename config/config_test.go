package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kvakvs/jkdefrag-go/config"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/session"
)

func TestDefault(t *testing.T) {
	d := config.Default()
	if d.Mode != "AnalyzeFixup" {
		t.Errorf("Default().Mode = %q, want AnalyzeFixup", d.Mode)
	}
	if d.FreeSpacePercentReserve != 10 {
		t.Errorf("Default().FreeSpacePercentReserve = %v, want 10", d.FreeSpacePercentReserve)
	}
	if d.DebugLevel != "Progress" {
		t.Errorf("Default().DebugLevel = %q, want Progress", d.DebugLevel)
	}
}

func TestLoadFileOverlaysOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jkdefrag.json")
	const body = `{"mode":"AnalyzeSortByName","slowdown_percent":50}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	base := config.Default()
	got, err := config.LoadFile(path, base)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Mode != "AnalyzeSortByName" {
		t.Errorf("Mode = %q, want AnalyzeSortByName", got.Mode)
	}
	if got.SlowdownPercent != 50 {
		t.Errorf("SlowdownPercent = %d, want 50", got.SlowdownPercent)
	}
	// Untouched by the file: Default()'s own value must survive the overlay.
	if got.FreeSpacePercentReserve != 10 {
		t.Errorf("FreeSpacePercentReserve = %v, want 10 (unchanged)", got.FreeSpacePercentReserve)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.json"), config.Default())
	if err == nil {
		t.Fatal("LoadFile: expected an error for a missing file")
	}
}

func TestParseDebugLevel(t *testing.T) {
	cases := []struct {
		name string
		want observer.DebugLevel
	}{
		{"Fatal", observer.Fatal},
		{"Progress", observer.Progress},
		{"DetailedGapFilling", observer.DetailedGapFilling},
	}
	for _, c := range cases {
		got, err := config.ParseDebugLevel(c.name)
		if err != nil {
			t.Errorf("ParseDebugLevel(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("ParseDebugLevel(%q) = %v, want %v", c.name, got, c.want)
		}
	}
	if _, err := config.ParseDebugLevel("Chatty"); err == nil {
		t.Error("ParseDebugLevel(\"Chatty\"): expected an error for an unknown level")
	}
}

func TestMasksDefaultSpaceHogsToggle(t *testing.T) {
	c := config.Default()
	if !c.Masks().UseDefaultSpaceHogs {
		t.Error("Masks().UseDefaultSpaceHogs = false with no -u masks, want true")
	}
	c.SpaceHogs = []string{"*.iso"}
	if c.Masks().UseDefaultSpaceHogs {
		t.Error("Masks().UseDefaultSpaceHogs = true with a -u mask supplied, want false")
	}
}

func TestModeRoundTrip(t *testing.T) {
	c := config.Default()
	c.Mode = "AnalyzeSortBySize"
	m, err := c.ResolveMode()
	if err != nil {
		t.Fatalf("ResolveMode(): %v", err)
	}
	if m != session.AnalyzeSortBySize {
		t.Errorf("ResolveMode() = %v, want AnalyzeSortBySize", m)
	}

	c.Mode = "NotAMode"
	if _, err := c.ResolveMode(); err == nil {
		t.Error("ResolveMode(): expected an error for an unknown mode name")
	}
}
