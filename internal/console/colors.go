package console

import "fmt"

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[94m" // Bright blue - more readable on dark backgrounds
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
	ColorBold   = "\033[1m"
)

// Colors holds all color functions
type Colors struct {
	enabled bool
}

// NewColors creates a new Colors instance
func NewColors(enabled bool) *Colors {
	return &Colors{enabled: enabled}
}

// Red returns red colored text
func (c *Colors) Red(s string) string {
	if !c.enabled {
		return s
	}
	return ColorRed + s + ColorReset
}

// Green returns green colored text
func (c *Colors) Green(s string) string {
	if !c.enabled {
		return s
	}
	return ColorGreen + s + ColorReset
}

// Yellow returns yellow colored text
func (c *Colors) Yellow(s string) string {
	if !c.enabled {
		return s
	}
	return ColorYellow + s + ColorReset
}

// Blue returns blue colored text
func (c *Colors) Blue(s string) string {
	if !c.enabled {
		return s
	}
	return ColorBlue + s + ColorReset
}

// Cyan returns cyan colored text
func (c *Colors) Cyan(s string) string {
	if !c.enabled {
		return s
	}
	return ColorCyan + s + ColorReset
}

// Gray returns gray colored text
func (c *Colors) Gray(s string) string {
	if !c.enabled {
		return s
	}
	return ColorGray + s + ColorReset
}

// Bold returns bold text
func (c *Colors) Bold(s string) string {
	if !c.enabled {
		return s
	}
	return ColorBold + s + ColorReset
}

// LevelColor colors text according to a log level tag.
func (c *Colors) LevelColor(level string, text string) string {
	switch level {
	case "ERROR", "CRITICAL":
		return c.Red(text)
	case "WARNING":
		return c.Yellow(text)
	case "DEBUG", "TRACE":
		return c.Gray(text)
	case "PROGRESS", "STATUS":
		return c.Cyan(text)
	default:
		return text
	}
}

// ProgressBar creates a simple progress bar
func (c *Colors) ProgressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}

	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}

	percentText := fmt.Sprintf(" %3.0f%%", percent)

	if c.enabled {
		if percent >= 100 {
			return c.Green(bar) + c.Green(percentText)
		} else if percent >= 50 {
			return c.Blue(bar) + percentText
		}
		return c.Gray(bar) + percentText
	}

	return bar + percentText
}
