// Package lipgloss provides theme implementations using the Lipgloss styling
// library.
package lipgloss

import "github.com/fwojciec/planreview"

// Compile-time interface verification.
var _ planreview.Theme = (*Theme)(nil)

// Theme implements planreview.Theme with Lipgloss-compatible colors.
type Theme struct {
	styles planreview.Styles
}

// Styles returns the color styles for this theme.
func (t *Theme) Styles() planreview.Styles {
	return t.styles
}

// DefaultTheme returns the default theme (dark background optimized).
func DefaultTheme() *Theme {
	return DarkTheme()
}

// DarkTheme returns a theme optimized for dark terminal backgrounds
// (Catppuccin Mocha).
func DarkTheme() *Theme {
	return &Theme{
		styles: planreview.Styles{
			Added: planreview.ColorPair{
				Foreground: "#a6e3a1", // Green
			},
			Removed: planreview.ColorPair{
				Foreground: "#f38ba8", // Red
			},
			Context: planreview.ColorPair{
				Foreground: "#6c7086", // Muted gray (dimmed for change visibility)
			},
			Moved: planreview.ColorPair{
				Foreground: "#f9e2af", // Yellow
			},
			Header: planreview.ColorPair{
				Foreground: "#f9e2af", // Yellow
				Background: "#313244", // Dark surface
			},
			Accepted: planreview.ColorPair{
				Foreground: "#a6e3a1",
			},
			Rejected: planreview.ColorPair{
				Foreground: "#f38ba8",
			},
			Pending: planreview.ColorPair{
				Foreground: "#89b4fa", // Blue
			},
			Footer: planreview.ColorPair{
				Foreground: "#a6adc8",
				Background: "#313244",
			},
		},
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds
// (Catppuccin Latte).
func LightTheme() *Theme {
	return &Theme{
		styles: planreview.Styles{
			Added: planreview.ColorPair{
				Foreground: "#40a02b", // Green
			},
			Removed: planreview.ColorPair{
				Foreground: "#d20f39", // Red
			},
			Context: planreview.ColorPair{
				Foreground: "#9ca0b0", // Muted gray
			},
			Moved: planreview.ColorPair{
				Foreground: "#df8e1d", // Yellow
			},
			Header: planreview.ColorPair{
				Foreground: "#df8e1d",
				Background: "#e6e9ef", // Light surface
			},
			Accepted: planreview.ColorPair{
				Foreground: "#40a02b",
			},
			Rejected: planreview.ColorPair{
				Foreground: "#d20f39",
			},
			Pending: planreview.ColorPair{
				Foreground: "#1e66f5", // Blue
			},
			Footer: planreview.ColorPair{
				Foreground: "#6c6f85",
				Background: "#e6e9ef",
			},
		},
	}
}
