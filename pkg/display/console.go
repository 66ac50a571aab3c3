package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/charlie0129/tankmon/pkg/format"
)

// Console is a text-capable display that prints every update as a line.
// It stands in for LED matrix and OLED panels on a terminal.
type Console struct {
	w          io.Writer
	prefix     string
	brightness int

	mu      sync.Mutex
	current string
}

var (
	_ Device = &Console{}
	_ Dimmer = &Console{}
)

// NewConsole returns a Console writing to w. Lines start with prefix.
func NewConsole(w io.Writer, prefix string) *Console {
	return &Console{w: w, prefix: prefix, brightness: MaxBrightness / 2}
}

func (c *Console) ShowText(text string, scroll bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = text

	line := c.colorize(text)
	if scroll {
		line = "<< " + line + " <<"
	}
	_, err := fmt.Fprintf(c.w, "%s%s\n", c.prefix, line)
	return err
}

func (c *Console) ShowNumber(value float64) error {
	return c.ShowText(fmt.Sprintf("%.1f", value), false)
}

func (c *Console) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = ""
	_, err := fmt.Fprintf(c.w, "%s\n", c.prefix)
	return err
}

func (c *Console) SetBrightness(level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.brightness = ClampBrightness(level)
	return nil
}

func (c *Console) Capabilities() Capabilities {
	return Capabilities{Text: true, Precision: 1}
}

// Current returns the text last shown.
func (c *Console) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

func (c *Console) colorize(text string) string {
	attrs := []color.Attribute{}
	switch {
	case text == format.ErrorText, strings.HasPrefix(text, format.RangeErrorPrefix):
		attrs = append(attrs, color.FgRed)
	case text == "LOW":
		attrs = append(attrs, color.FgYellow)
	case text == "FULL":
		attrs = append(attrs, color.FgCyan)
	}
	if c.brightness > MaxBrightness*2/3 {
		attrs = append(attrs, color.Bold)
	}
	if c.brightness == MinBrightness {
		attrs = append(attrs, color.Faint)
	}
	if len(attrs) == 0 {
		return text
	}
	return color.New(attrs...).Sprint(text)
}
