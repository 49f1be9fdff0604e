package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Physics.InteractionDistance != 100 {
		t.Errorf("interaction_distance = %v, want 100", cfg.Physics.InteractionDistance)
	}
	if cfg.Physics.ReturnSpeed != 10 {
		t.Errorf("return_speed = %v, want 10", cfg.Physics.ReturnSpeed)
	}
	if cfg.Physics.Friction != 0.98 {
		t.Errorf("friction = %v, want 0.98", cfg.Physics.Friction)
	}
	if cfg.Text.Stride != 3 {
		t.Errorf("stride = %d, want 3", cfg.Text.Stride)
	}

	want := color.NRGBA{R: 255, G: 255, B: 255, A: 0x80}
	if cfg.Derived.BackgroundColor != want {
		t.Errorf("derived background particle colour = %v, want %v", cfg.Derived.BackgroundColor, want)
	}
	if cfg.Derived.StatsWindowFrames != 600 {
		t.Errorf("stats window frames = %d, want 600", cfg.Derived.StatsWindowFrames)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("physics:\n  return_speed: 4\ntext:\n  content: \"HI\"\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Physics.ReturnSpeed != 4 {
		t.Errorf("return_speed = %v, want 4", cfg.Physics.ReturnSpeed)
	}
	if cfg.Text.Content != "HI" {
		t.Errorf("content = %q, want HI", cfg.Text.Content)
	}
	// Untouched fields keep defaults
	if cfg.Physics.InteractionDistance != 100 {
		t.Errorf("interaction_distance = %v, want default 100", cfg.Physics.InteractionDistance)
	}
}

func TestLoadBadColour(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("text:\n  color: \"#zzz\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid text colour")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Text.Content = "ROUND TRIP"

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML error: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if back.Text.Content != "ROUND TRIP" {
		t.Errorf("content = %q after roundtrip", back.Text.Content)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"white", color.NRGBA{255, 255, 255, 255}, false},
		{"Black", color.NRGBA{0, 0, 0, 255}, false},
		{"transparent", color.NRGBA{}, false},
		{"#3498db", color.NRGBA{0x34, 0x98, 0xdb, 255}, false},
		{"#ffffff80", color.NRGBA{255, 255, 255, 0x80}, false},
		{"#12345", color.NRGBA{}, true},
		{"rgb(1,2,3)", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
