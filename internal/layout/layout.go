// Package layout shapes plain text to fit a receipt line.
//
// Widths are measured in runes, which matches the single-byte code pages the
// printer is driven with. All functions are total and deterministic.
package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/adcondev/ticket-bridge/internal/profile"
)

// MaxCharsPerLine resolves the paper size and font category of cfg and
// returns the characters-per-line budget.
func MaxCharsPerLine(cfg profile.PrinterConfiguration) int {
	cfg = cfg.Normalize()
	return profile.Lookup(cfg.PaperSize).MaxChars(profile.CategoryFor(cfg.FontSize))
}

// Wrap breaks text into lines using greedy word wrapping.
// A word longer than the line budget is kept whole on its own line.
func Wrap(text string, cfg profile.PrinterConfiguration) []string {
	maxChars := MaxCharsPerLine(cfg)
	if width(text) <= maxChars {
		return []string{text}
	}

	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case width(line)+1+width(word) <= maxChars:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// Center left-pads text so it sits in the middle of the line.
func Center(text string, cfg profile.PrinterConfiguration) string {
	pad := (MaxCharsPerLine(cfg) - width(text)) / 2
	return padLeft(text, pad)
}

// RightAlign left-pads text so it ends at the right margin.
func RightAlign(text string, cfg profile.PrinterConfiguration) string {
	return padLeft(text, MaxCharsPerLine(cfg)-width(text))
}

// Justify places label at the left margin and value at the right margin.
// When both do not fit they are joined by a single space.
func Justify(label, value string, cfg profile.PrinterConfiguration) string {
	maxChars := MaxCharsPerLine(cfg)
	used := width(label) + width(value)
	if used >= maxChars {
		return label + " " + value
	}
	return label + strings.Repeat(" ", maxChars-used) + value
}

// Separator returns ch repeated across the full line.
func Separator(cfg profile.PrinterConfiguration, ch rune) string {
	return strings.Repeat(string(ch), MaxCharsPerLine(cfg))
}

// Dashes is Separator with the default '-' rule.
func Dashes(cfg profile.PrinterConfiguration) string {
	return Separator(cfg, '-')
}

func padLeft(text string, n int) string {
	if n <= 0 {
		return text
	}
	return strings.Repeat(" ", n) + text
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}
