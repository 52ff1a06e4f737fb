// Package profile describes the physical output preferences of a receipt printer
// and the static paper table derived from them.
package profile

import "strings"

// PaperSize is the roll width loaded in the printer.
type PaperSize string

// Supported roll widths.
const (
	Paper58  PaperSize = "58mm"
	Paper80  PaperSize = "80mm"
	Paper112 PaperSize = "112mm"
)

// Quality is the requested print quality.
type Quality string

// Supported print qualities.
const (
	QualityDraft  Quality = "draft"
	QualityNormal Quality = "normal"
	QualityHigh   Quality = "high"
)

// Defaults applied when a configuration value is missing or unknown.
const (
	DefaultPaperSize   = Paper80
	DefaultQuality     = QualityNormal
	DefaultFontSize    = 12
	DefaultLineSpacing = 1.2
	DefaultAutocut     = true
	DefaultCodePage    = "cp437"
)

// PrinterConfiguration is an immutable value describing how receipts are printed.
// Callers read it fresh for every print call and never mutate a shared copy.
type PrinterConfiguration struct {
	PaperSize    PaperSize `json:"paperSize" mapstructure:"paper_size"`
	PrintQuality Quality   `json:"printQuality" mapstructure:"print_quality"`
	// Autocut is a pointer so that "missing" can be told apart from "false".
	Autocut     *bool   `json:"autocut,omitempty" mapstructure:"autocut"`
	HeaderText  string  `json:"headerText,omitempty" mapstructure:"header_text"`
	FooterText  string  `json:"footerText,omitempty" mapstructure:"footer_text"`
	IncludeLogo bool    `json:"includeLogo" mapstructure:"include_logo"`
	FontSize    int     `json:"fontSize" mapstructure:"font_size"`
	LineSpacing float64 `json:"lineSpacing" mapstructure:"line_spacing"`
	CodePage    string  `json:"codePage,omitempty" mapstructure:"code_page"`
}

// Default returns a configuration with every field set to its default.
func Default() PrinterConfiguration {
	return PrinterConfiguration{}.Normalize()
}

// Normalize returns a copy where unknown or missing values fall back to defaults.
func (c PrinterConfiguration) Normalize() PrinterConfiguration {
	c.PaperSize = ParsePaperSize(string(c.PaperSize))
	c.PrintQuality = ParseQuality(string(c.PrintQuality))
	if c.Autocut == nil {
		v := DefaultAutocut
		c.Autocut = &v
	}
	if c.FontSize <= 0 {
		c.FontSize = DefaultFontSize
	}
	if c.LineSpacing <= 0 {
		c.LineSpacing = DefaultLineSpacing
	}
	if strings.TrimSpace(c.CodePage) == "" {
		c.CodePage = DefaultCodePage
	}
	return c
}

// AutocutEnabled reports whether the paper is cut after a receipt.
func (c PrinterConfiguration) AutocutEnabled() bool {
	if c.Autocut == nil {
		return DefaultAutocut
	}
	return *c.Autocut
}

// ParsePaperSize accepts "58mm", "58" and similar spellings.
func ParsePaperSize(s string) PaperSize {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "mm")
	switch s {
	case "58":
		return Paper58
	case "80":
		return Paper80
	case "112":
		return Paper112
	default:
		return DefaultPaperSize
	}
}

// ParseQuality maps a quality name to a Quality, falling back to normal.
func ParseQuality(s string) Quality {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityDraft:
		return QualityDraft
	case QualityHigh:
		return QualityHigh
	case QualityNormal:
		return QualityNormal
	default:
		return DefaultQuality
	}
}

// Bool is a helper for building configurations with an explicit Autocut.
func Bool(v bool) *bool { return &v }
