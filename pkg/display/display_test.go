package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestSevenSegmentShowNumber(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{70, "     70.0"},
		{3.14159, "      3.1"},
		{-2.5, "     -2.5"},
		{1234567.8, "1234567.8"},
		{123456789, "--------"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		s := NewSevenSegment(&buf)
		if err := s.ShowNumber(tt.value); err != nil {
			t.Fatal(err)
		}
		if got := s.Digits(); got != tt.want {
			t.Errorf("ShowNumber(%v) digits = %q, want %q", tt.value, got, tt.want)
		}
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("ShowNumber(%v) wrote %q", tt.value, buf.String())
		}
	}
}

func TestSevenSegmentShowText(t *testing.T) {
	var buf bytes.Buffer
	s := NewSevenSegment(&buf)

	_ = s.ShowText("Error", true)
	if got := s.Digits(); got != "   ERROR" {
		t.Errorf("digits = %q", got)
	}

	_ = s.ShowText("RANGE ERR 120.0 cm", false)
	if got := s.Digits(); got != "RANGE ER" {
		t.Errorf("digits = %q", got)
	}

	_ = s.Clear()
	if got := s.Digits(); got != strings.Repeat(" ", SevenSegmentDigits) {
		t.Errorf("digits after clear = %q", got)
	}

	if s.Capabilities().Text {
		t.Error("seven segment display must not report text capability")
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "tank: ")

	if err := c.ShowText("70.0 cm", false); err != nil {
		t.Fatal(err)
	}
	if err := c.ShowText("Hello!", true); err != nil {
		t.Fatal(err)
	}
	if c.Current() != "Hello!" {
		t.Errorf("Current() = %q", c.Current())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "tank: ") || !strings.Contains(lines[0], "70.0 cm") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "<< ") {
		t.Errorf("scrolling text should be marked, got %q", lines[1])
	}
}

func TestClampBrightness(t *testing.T) {
	for in, want := range map[int]int{-3: 0, 0: 0, 8: 8, 15: 15, 99: 15} {
		if got := ClampBrightness(in); got != want {
			t.Errorf("ClampBrightness(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseType(t *testing.T) {
	if typ, err := ParseType("7seg"); err != nil || typ != TypeSevenSegment {
		t.Errorf("ParseType(7seg) = %v, %v", typ, err)
	}
	if _, err := ParseType("hologram"); err == nil {
		t.Error("expected error for unknown type")
	}
}
