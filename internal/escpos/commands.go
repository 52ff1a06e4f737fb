// Package escpos holds the ESC/POS command table and the byte builder used to
// assemble receipts for thermal printers.
package escpos

// Structural commands.
const (
	Init     = "\x1b\x40"     // ESC @
	CutPaper = "\x1d\x56\x00" // GS V 0, full cut
	FeedLine = "\n"
)

// Alignment.
const (
	AlignLeft   = "\x1b\x61\x00"
	AlignCenter = "\x1b\x61\x01"
	AlignRight  = "\x1b\x61\x02"
)

// Emphasis and character size (ESC E, ESC -, ESC !).
const (
	BoldOn           = "\x1b\x45\x01"
	BoldOff          = "\x1b\x45\x00"
	UnderlineOn      = "\x1b\x2d\x01"
	UnderlineOff     = "\x1b\x2d\x00"
	TextNormal       = "\x1b\x21\x00"
	TextSmall        = "\x1b\x21\x01" // font B
	TextDoubleHeight = "\x1b\x21\x10"
	TextDoubleWidth  = "\x1b\x21\x20"
	TextDoubleSize   = "\x1b\x21\x30"
)

// Character width (ESC M).
const (
	WidthNormal     = "\x1b\x4d\x00"
	WidthCompressed = "\x1b\x4d\x01"
)

// Line spacing (ESC 2 / ESC 3 n).
const (
	SpacingTight   = "\x1b\x33\x18"
	SpacingDefault = "\x1b\x32"
	SpacingWide    = "\x1b\x33\x40"
)

// Print density, GS ( K fn=49.
const (
	DensityNormal = "\x1d\x28\x4b\x02\x00\x31\x00"
	DensityHigh   = "\x1d\x28\x4b\x02\x00\x31\x03"
)

// Print quality expressed as print speed, GS ( K fn=50. Draft prints fastest.
const (
	QualityDraft  = "\x1d\x28\x4b\x02\x00\x32\x09"
	QualityNormal = "\x1d\x28\x4b\x02\x00\x32\x05"
	QualityHigh   = "\x1d\x28\x4b\x02\x00\x32\x01"
)

// NV logo (FS q stores, FS p prints).
const (
	LogoStore = "\x1c\x71\x01"
	LogoPrint = "\x1c\x70\x01\x00"
)

// SelectCodePage returns ESC t n.
func SelectCodePage(n byte) string {
	return string([]byte{0x1b, 0x74, n})
}

// FeedLines returns ESC d n.
func FeedLines(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	return string([]byte{0x1b, 0x64, byte(n)})
}
