package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", 1 * time.Minute, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 168 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"500ms", 500 * time.Millisecond, false},
		{"", 0, false},
		{"1w3d", 240 * time.Hour, false},
		{"0.5d", 12 * time.Hour, false},
		{"invalid", 0, true},
		{"1d junk", 0, true},
		{"d", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	type wrapper struct {
		TTL Duration `yaml:"ttl"`
	}

	var w wrapper
	if err := yaml.Unmarshal([]byte("ttl: 2d\n"), &w); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if w.TTL.Std() != 48*time.Hour {
		t.Errorf("Expected 48h, got %v", w.TTL.Std())
	}

	out, err := yaml.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != "ttl: 48h0m0s\n" {
		t.Errorf("Marshal = %q", string(out))
	}
}

func TestDuration_SetValue(t *testing.T) {
	var d Duration
	if err := d.SetValue("1w"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if d.Std() != Week {
		t.Errorf("Expected 1 week, got %v", d.Std())
	}
	if err := d.SetValue("3x"); err == nil {
		t.Error("Expected error for unknown unit")
	}
}
