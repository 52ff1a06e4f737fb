package escpos

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/ticket-bridge/internal/profile"
)

func TestCommandBytes(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want []byte
	}{
		{"init", Init, []byte{0x1b, 0x40}},
		{"cut", CutPaper, []byte{0x1d, 0x56, 0x00}},
		{"align left", AlignLeft, []byte{0x1b, 0x61, 0x00}},
		{"align center", AlignCenter, []byte{0x1b, 0x61, 0x01}},
		{"bold on", BoldOn, []byte{0x1b, 0x45, 0x01}},
		{"bold off", BoldOff, []byte{0x1b, 0x45, 0x00}},
		{"text normal", TextNormal, []byte{0x1b, 0x21, 0x00}},
		{"double size", TextDoubleSize, []byte{0x1b, 0x21, 0x30}},
		{"logo store", LogoStore, []byte{0x1c, 0x71, 0x01}},
		{"logo print", LogoPrint, []byte{0x1c, 0x70, 0x01, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, []byte(tt.cmd))
		})
	}
}

func TestTextSizeFor(t *testing.T) {
	tests := []struct {
		paper profile.PaperSize
		font  int
		want  TextSize
	}{
		{profile.Paper58, 8, SizeSmall},
		{profile.Paper58, 9, SizeNormal},
		{profile.Paper58, 12, SizeNormal},
		{profile.Paper58, 16, SizeDoubleHeight},
		{profile.Paper58, 17, SizeDoubleSize},
		{profile.Paper80, 10, SizeSmall},
		{profile.Paper80, 14, SizeNormal},
		{profile.Paper80, 18, SizeDoubleHeight},
		{profile.Paper80, 19, SizeDoubleSize},
		{profile.Paper112, 8, SizeNormal},
		{profile.Paper112, 12, SizeNormal},
		{profile.Paper112, 16, SizeDoubleHeight},
		{profile.Paper112, 17, SizeDoubleSize},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TextSizeFor(tt.paper, tt.font), "%s/%d", tt.paper, tt.font)
	}
}

func TestFontSize_DefaultsToNormalOn80mm(t *testing.T) {
	assert.Equal(t, TextNormal, FontSize(profile.PrinterConfiguration{}))
}

func TestClassifySpacing(t *testing.T) {
	assert.Equal(t, SpacingClassNarrow, ClassifySpacing(0.8))
	assert.Equal(t, SpacingClassNarrow, ClassifySpacing(1.0))
	assert.Equal(t, SpacingClassDefault, ClassifySpacing(1.2))
	assert.Equal(t, SpacingClassDefault, ClassifySpacing(1.99))
	assert.Equal(t, SpacingClassWide, ClassifySpacing(2.0))
}

func TestLineSpacing(t *testing.T) {
	tests := []struct {
		name string
		cfg  profile.PrinterConfiguration
		want string
	}{
		{"58mm default spacing is tight", profile.PrinterConfiguration{PaperSize: profile.Paper58}, SpacingTight},
		{"80mm default spacing", profile.PrinterConfiguration{}, SpacingDefault},
		{"112mm default spacing is wide", profile.PrinterConfiguration{PaperSize: profile.Paper112}, SpacingWide},
		{"explicit narrow wins", profile.PrinterConfiguration{PaperSize: profile.Paper112, LineSpacing: 1}, SpacingTight},
		{"explicit wide wins", profile.PrinterConfiguration{PaperSize: profile.Paper58, LineSpacing: 2.5}, SpacingWide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineSpacing(tt.cfg))
		})
	}
}

func TestPaperSetup(t *testing.T) {
	assert.Equal(t, []string{WidthCompressed, DensityHigh}, PaperSetup(profile.Paper58))
	assert.Equal(t, []string{WidthNormal, DensityNormal}, PaperSetup(profile.Paper80))
	assert.Equal(t, []string{WidthNormal, DensityNormal}, PaperSetup(profile.Paper112))
}

func TestQuality_UnknownIsNormal(t *testing.T) {
	assert.Equal(t, QualityDraft, Quality(profile.QualityDraft))
	assert.Equal(t, QualityHigh, Quality(profile.QualityHigh))
	assert.Equal(t, QualityNormal, Quality("best"))
}

func TestPreamble_SelectsCodePage(t *testing.T) {
	cmds := Preamble(profile.PrinterConfiguration{CodePage: "CP-858"})
	assert.Contains(t, cmds, SelectCodePage(19))
	assert.Contains(t, cmds, QualityNormal)
}

func TestCodePage_Encode(t *testing.T) {
	assert.Equal(t, []byte("Total: 10"), LookupCodePage("cp437").Encode("Total: 10"))
	assert.Equal(t, []byte{0x82}, LookupCodePage("cp850").Encode("é"))
	assert.Equal(t, []byte{'?'}, LookupCodePage("cp437").Encode("€"))
	assert.Equal(t, []byte{0xd5}, LookupCodePage("cp858").Encode("€"))
	assert.Equal(t, "cp437", LookupCodePage("klingon").Name)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(LookupCodePage("cp437"))
	b.Cmd(Init, BoldOn).Line("Hello").Cmd(BoldOff).Feed(2).Raw([]byte{0x00})

	want := []byte("\x1b\x40\x1b\x45\x01Hello\n\x1b\x45\x00\n\n\x00")
	assert.Equal(t, want, b.Bytes())
	assert.Equal(t, len(want), b.Len())
}

func TestBuilder_BytesIsACopy(t *testing.T) {
	b := NewBuilder(LookupCodePage(""))
	b.Text("ab")
	out := b.Bytes()
	out[0] = 'z'
	assert.Equal(t, []byte("ab"), b.Bytes())
}

func TestLogo_StoreCommand(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 3))
	for x := 0; x < 10; x++ {
		for y := 0; y < 3; y++ {
			img.SetGray(x, y, color.Gray{Y: 0xff})
		}
	}
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(9, 2, color.Gray{Y: 0})

	logo, err := NewLogo(img, profile.Lookup(profile.Paper80))
	require.NoError(t, err)
	assert.Equal(t, 16, logo.Width)
	assert.Equal(t, 8, logo.Height)
	assert.True(t, logo.Black(0, 0))
	assert.True(t, logo.Black(9, 2))
	assert.False(t, logo.Black(12, 7))

	cmd := logo.StoreCommand()
	require.True(t, bytes.HasPrefix(cmd, []byte(LogoStore)))
	header := cmd[len(LogoStore) : len(LogoStore)+4]
	assert.Equal(t, []byte{2, 0, 1, 0}, header)

	data := cmd[len(LogoStore)+4:]
	require.Len(t, data, 16)
	assert.Equal(t, byte(0x80), data[0])
	assert.Equal(t, byte(0x20), data[9])
}

func TestNewLogo_ScalesWideImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1000, 100))
	logo, err := NewLogo(img, profile.Lookup(profile.Paper58))
	require.NoError(t, err)
	assert.LessOrEqual(t, logo.Width, 192)
	assert.Zero(t, logo.Height%8)
}

func TestNewLogo_Empty(t *testing.T) {
	_, err := NewLogo(image.NewRGBA(image.Rect(0, 0, 0, 0)), profile.Lookup(profile.Paper80))
	assert.ErrorIs(t, err, ErrEmptyLogo)
}

func TestLoadLogo_GIF(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.White, color.Black})
	img.SetColorIndex(3, 4, 1)

	path := filepath.Join(t.TempDir(), "logo.gif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.Encode(f, img, nil))
	require.NoError(t, f.Close())

	logo, err := LoadLogo(path, profile.Lookup(profile.Paper80))
	require.NoError(t, err)
	assert.Equal(t, 8, logo.Width)
	assert.True(t, logo.Black(3, 4))
	assert.False(t, logo.Black(0, 0))
}

func TestRenderTextLogo(t *testing.T) {
	paper := profile.Lookup(profile.Paper80)
	img, err := RenderTextLogo("CAFE", paper, 14)
	require.NoError(t, err)

	logo, err := NewLogo(img, paper)
	require.NoError(t, err)

	black := 0
	for y := 0; y < logo.Height; y++ {
		for x := 0; x < logo.Width; x++ {
			if logo.Black(x, y) {
				black++
			}
		}
	}
	assert.Positive(t, black)
}
