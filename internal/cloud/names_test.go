package cloud

import (
	"strings"
	"testing"
	"time"
)

func TestJobName(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	name := jobName("my-model", now)
	if !strings.HasPrefix(name, "my-model-2026-01-15-10-30-00-") {
		t.Errorf("jobName() = %q, want timestamped prefix", name)
	}
	if len(name) > maxNameLen {
		t.Errorf("jobName() = %q, exceeds %d characters", name, maxNameLen)
	}

	// Names never repeat even with identical base and timestamp.
	if other := jobName("my-model", now); other == name {
		t.Errorf("jobName() returned duplicate name %q", name)
	}
}

func TestJobName_TruncatesLongBase(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	base := strings.Repeat("x", 100)

	name := jobName(base, now)
	if len(name) > maxNameLen {
		t.Errorf("jobName() = %q (%d chars), exceeds %d", name, len(name), maxNameLen)
	}
}

func TestJobName_EmptyBase(t *testing.T) {
	name := jobName("", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC))
	if !strings.HasPrefix(name, "sagify-") {
		t.Errorf("jobName(\"\") = %q, want sagify- prefix", name)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-model", "my-model"},
		{"my_model", "my-model"},
		{"My.Model:v1", "My-Model-v1"},
		{"--edge--", "edge"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImageBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-model:v1", "my-model"},
		{"my-model", "my-model"},
		{"123456789012.dkr.ecr.us-east-1.amazonaws.com/my-model:latest", "my-model"},
		{"registry.example.com/team/my-model", "my-model"},
	}
	for _, tt := range tests {
		if got := imageBase(tt.in); got != tt.want {
			t.Errorf("imageBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
