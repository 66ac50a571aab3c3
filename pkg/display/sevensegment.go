package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// SevenSegmentDigits is the width of the emulated module.
const SevenSegmentDigits = 8

// SevenSegment emulates an 8-digit seven-segment module (MAX7219 class).
// It renders numbers right-aligned with one fractional digit. Text is
// best effort: upper-cased, truncated and right-aligned, since most
// letters only approximate on segments.
type SevenSegment struct {
	w io.Writer

	mu     sync.Mutex
	digits string
}

var _ Device = &SevenSegment{}

func NewSevenSegment(w io.Writer) *SevenSegment {
	return &SevenSegment{w: w, digits: strings.Repeat(" ", SevenSegmentDigits)}
}

func (s *SevenSegment) ShowNumber(value float64) error {
	text := fmt.Sprintf("%.1f", value)
	// The decimal point shares a digit with the number before it.
	if len(text)-strings.Count(text, ".") > SevenSegmentDigits {
		text = strings.Repeat("-", SevenSegmentDigits)
	}
	return s.render(text)
}

func (s *SevenSegment) ShowText(text string, _ bool) error {
	text = strings.ToUpper(strings.TrimSpace(text))
	if len(text) > SevenSegmentDigits {
		text = text[:SevenSegmentDigits]
	}
	return s.render(text)
}

func (s *SevenSegment) Clear() error {
	return s.render("")
}

func (s *SevenSegment) Capabilities() Capabilities {
	return Capabilities{Text: false, Precision: 1}
}

// Digits returns the current content of the module.
func (s *SevenSegment) Digits() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.digits
}

func (s *SevenSegment) render(text string) error {
	width := SevenSegmentDigits + strings.Count(text, ".")
	padded := fmt.Sprintf("%*s", width, text)

	s.mu.Lock()
	s.digits = padded
	s.mu.Unlock()

	_, err := fmt.Fprintf(s.w, "[%s]\n", padded)
	return err
}
