package display

// Nop discards every update. It is used on headless installs, where the
// reading is only published.
type Nop struct{}

var _ Device = Nop{}

func (Nop) ShowText(string, bool) error { return nil }
func (Nop) ShowNumber(float64) error    { return nil }
func (Nop) Clear() error                { return nil }
func (Nop) Capabilities() Capabilities  { return Capabilities{Text: true, Precision: 1} }
