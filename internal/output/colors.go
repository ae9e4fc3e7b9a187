package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for the different parts of a report
type ColorScheme struct {
	Title     *color.Color
	Label     *color.Color
	Value     *color.Color
	Dim       *color.Color
	Pass      *color.Color
	Warn      *color.Color
	Fail      *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Label:     color.New(color.Bold),
		Value:     color.New(color.FgCyan),
		Dim:       color.New(color.Faint),
		Pass:      color.New(color.FgGreen),
		Warn:      color.New(color.FgYellow),
		Fail:      color.New(color.FgRed),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NewColorScheme returns the default scheme with colors forced on or off,
// regardless of what fatih/color detected for stdout.
func NewColorScheme(enabled bool) *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return scheme
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	return NewColorScheme(false)
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Label, s.Value, s.Dim, s.Pass, s.Warn, s.Fail, s.Highlight}
}

// Rate picks pass, warn or fail for a failure ratio.
func (s *ColorScheme) Rate(failed float64) *color.Color {
	switch {
	case failed > 0.05:
		return s.Fail
	case failed > 0.01:
		return s.Warn
	default:
		return s.Pass
	}
}

// SuccessIcon returns a checkmark symbol with appropriate color
func (s *ColorScheme) SuccessIcon() string {
	return s.Pass.Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func (s *ColorScheme) ErrorIcon() string {
	return s.Fail.Sprint("✗")
}

// Icon returns SuccessIcon or ErrorIcon.
func (s *ColorScheme) Icon(passed bool) string {
	if passed {
		return s.SuccessIcon()
	}
	return s.ErrorIcon()
}
