package profile

// FontCategory buckets a pixel font size into one of four widths.
type FontCategory int

// Font categories, narrowest glyphs first.
const (
	FontSmall FontCategory = iota
	FontMedium
	FontLarge
	FontExtraLarge
)

func (c FontCategory) String() string {
	switch c {
	case FontSmall:
		return "small"
	case FontMedium:
		return "medium"
	case FontLarge:
		return "large"
	default:
		return "extraLarge"
	}
}

// CategoryFor maps a font size in px to its category.
func CategoryFor(fontSize int) FontCategory {
	switch {
	case fontSize <= 10:
		return FontSmall
	case fontSize <= 14:
		return FontMedium
	case fontSize <= 18:
		return FontLarge
	default:
		return FontExtraLarge
	}
}

// PaperProfile is the static description of one roll width.
type PaperProfile struct {
	Size PaperSize
	// PrintableMM is the printable width of the head in millimetres.
	PrintableMM int
	// Dots is the number of addressable dots per raster line.
	Dots int
	// maxChars is indexed by FontCategory.
	maxChars [4]int
}

// MaxChars returns the characters-per-line budget for a font category.
func (p PaperProfile) MaxChars(c FontCategory) int {
	if c < FontSmall || c > FontExtraLarge {
		c = FontMedium
	}
	return p.maxChars[c]
}

var paperProfiles = map[PaperSize]PaperProfile{
	Paper58: {
		Size:        Paper58,
		PrintableMM: 48,
		Dots:        384,
		maxChars:    [4]int{42, 38, 32, 24},
	},
	Paper80: {
		Size:        Paper80,
		PrintableMM: 72,
		Dots:        576,
		maxChars:    [4]int{72, 64, 48, 42},
	},
	Paper112: {
		Size:        Paper112,
		PrintableMM: 104,
		Dots:        832,
		maxChars:    [4]int{104, 88, 72, 56},
	},
}

// Lookup returns the profile for a paper size; unknown sizes resolve to the default.
func Lookup(size PaperSize) PaperProfile {
	if p, ok := paperProfiles[size]; ok {
		return p
	}
	return paperProfiles[DefaultPaperSize]
}

// For resolves the paper profile of a configuration after normalization.
func For(cfg PrinterConfiguration) PaperProfile {
	return Lookup(cfg.Normalize().PaperSize)
}
