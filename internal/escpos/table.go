package escpos

import "github.com/adcondev/ticket-bridge/internal/profile"

// TextSize is the concrete character size a font size resolves to.
type TextSize int

// Text sizes from smallest to largest.
const (
	SizeSmall TextSize = iota
	SizeNormal
	SizeDoubleHeight
	SizeDoubleSize
)

// Command returns the ESC ! sequence for the size.
func (s TextSize) Command() string {
	switch s {
	case SizeSmall:
		return TextSmall
	case SizeDoubleHeight:
		return TextDoubleHeight
	case SizeDoubleSize:
		return TextDoubleSize
	default:
		return TextNormal
	}
}

// TextSizeFor picks the character size for a font size. Thresholds depend on
// the paper: 58mm {8,12,16}, 80mm {10,14,18}, 112mm {12,16}.
func TextSizeFor(paper profile.PaperSize, fontSize int) TextSize {
	switch paper {
	case profile.Paper58:
		switch {
		case fontSize <= 8:
			return SizeSmall
		case fontSize <= 12:
			return SizeNormal
		case fontSize <= 16:
			return SizeDoubleHeight
		default:
			return SizeDoubleSize
		}
	case profile.Paper112:
		switch {
		case fontSize <= 12:
			return SizeNormal
		case fontSize <= 16:
			return SizeDoubleHeight
		default:
			return SizeDoubleSize
		}
	default:
		switch {
		case fontSize <= 10:
			return SizeSmall
		case fontSize <= 14:
			return SizeNormal
		case fontSize <= 18:
			return SizeDoubleHeight
		default:
			return SizeDoubleSize
		}
	}
}

// FontSize returns the body text size command for cfg.
func FontSize(cfg profile.PrinterConfiguration) string {
	cfg = cfg.Normalize()
	return TextSizeFor(cfg.PaperSize, cfg.FontSize).Command()
}

// Quality maps a print quality to its command.
func Quality(q profile.Quality) string {
	switch profile.ParseQuality(string(q)) {
	case profile.QualityDraft:
		return QualityDraft
	case profile.QualityHigh:
		return QualityHigh
	default:
		return QualityNormal
	}
}

// SpacingClass groups line-spacing factors.
type SpacingClass int

// Spacing classes.
const (
	SpacingClassNarrow SpacingClass = iota
	SpacingClassDefault
	SpacingClassWide
)

// ClassifySpacing buckets a line-spacing factor: <=1.0 narrow, >=2.0 wide.
func ClassifySpacing(lineSpacing float64) SpacingClass {
	switch {
	case lineSpacing <= 1.0:
		return SpacingClassNarrow
	case lineSpacing >= 2.0:
		return SpacingClassWide
	default:
		return SpacingClassDefault
	}
}

// PaperSetup returns the width and density commands for a paper size.
// 58mm prints compressed and dense, 80mm and 112mm print normal width.
func PaperSetup(size profile.PaperSize) []string {
	switch profile.ParsePaperSize(string(size)) {
	case profile.Paper58:
		return []string{WidthCompressed, DensityHigh}
	default:
		return []string{WidthNormal, DensityNormal}
	}
}

// paperSpacing is the spacing a paper size uses when no explicit spacing is requested.
func paperSpacing(size profile.PaperSize) string {
	switch profile.ParsePaperSize(string(size)) {
	case profile.Paper58:
		return SpacingTight
	case profile.Paper112:
		return SpacingWide
	default:
		return SpacingDefault
	}
}

// LineSpacing resolves the spacing command. An explicit narrow or wide factor
// wins over the paper's own spacing.
func LineSpacing(cfg profile.PrinterConfiguration) string {
	cfg = cfg.Normalize()
	switch ClassifySpacing(cfg.LineSpacing) {
	case SpacingClassNarrow:
		return SpacingTight
	case SpacingClassWide:
		return SpacingWide
	default:
		return paperSpacing(cfg.PaperSize)
	}
}

// Preamble is everything sent after INIT to prepare the printer for cfg.
func Preamble(cfg profile.PrinterConfiguration) []string {
	cfg = cfg.Normalize()
	cmds := PaperSetup(cfg.PaperSize)
	cmds = append(cmds,
		Quality(cfg.PrintQuality),
		LineSpacing(cfg),
		SelectCodePage(LookupCodePage(cfg.CodePage).Table),
		FontSize(cfg),
	)
	return cmds
}
