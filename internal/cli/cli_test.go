package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{7 * time.Second, "0:07"},
		{90*time.Second + 400*time.Millisecond, "1:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPrompterAsk(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  Engineer \n\n"), &out)

	if got := p.Ask("Persona", ""); got != "Engineer" {
		t.Errorf("first answer = %q", got)
	}
	if got := p.Ask("Purpose", "Launch"); got != "Launch" {
		t.Errorf("empty answer should keep default, got %q", got)
	}
	if got := p.Ask("Story", "none"); got != "none" {
		t.Errorf("exhausted input should keep default, got %q", got)
	}
	if !strings.Contains(out.String(), "Purpose [Launch]: ") {
		t.Errorf("default not shown in prompt: %q", out.String())
	}
}

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.jpg")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ResolveFiles([]string{b, a})
	if err != nil {
		t.Fatalf("ResolveFiles() error: %v", err)
	}
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("order or paths changed: %v", got)
	}

	if _, err := ResolveFiles([]string{filepath.Join(dir, "missing.png")}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ResolveFiles([]string{dir}); err == nil {
		t.Error("expected error for directory")
	}
}
