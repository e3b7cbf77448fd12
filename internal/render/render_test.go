package render

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/local/docsections/internal/pdftest"
)

func writeFixture(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page_001.pdf")
	require.NoError(t, pdftest.WriteSinglePagePDF(path, text))
	return path
}

func TestExtractText(t *testing.T) {
	path := writeFixture(t, "The early republics traded along the coast.")

	text, err := ExtractText(path, 1)
	require.NoError(t, err)
	require.Contains(t, text, "early republics")
}

func TestExtractTextPageOutOfRange(t *testing.T) {
	path := writeFixture(t, "only one page")

	for _, page := range []int{0, -1, 2} {
		_, err := ExtractText(path, page)
		require.Error(t, err, "page %d", page)
		require.Contains(t, err.Error(), "out of range")
	}
}

func TestExtractTextMissingFile(t *testing.T) {
	_, err := ExtractText(filepath.Join(t.TempDir(), "nope.pdf"), 1)
	require.Error(t, err)
}

func TestRenderImagePNG(t *testing.T) {
	path := writeFixture(t, "render me")

	data, w, h, err := RenderImage(path, 1, ImageOptions{Zoom: 1.0})
	require.NoError(t, err)
	require.Positive(t, w)
	require.Positive(t, h)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, w, img.Bounds().Dx())
	require.Equal(t, h, img.Bounds().Dy())
}

func TestRenderImageZoomScalesOutput(t *testing.T) {
	path := writeFixture(t, "zoom test")

	_, w1, _, err := RenderImage(path, 1, ImageOptions{Zoom: 1.0})
	require.NoError(t, err)
	_, w2, _, err := RenderImage(path, 1, ImageOptions{Zoom: 2.0})
	require.NoError(t, err)
	require.Greater(t, w2, w1)
}

func TestRenderImageJPEGGray(t *testing.T) {
	path := writeFixture(t, "gray jpeg")

	data, _, _, err := RenderImage(path, 1, ImageOptions{Zoom: 1.5, Format: FormatJPEG, Color: ColorGray, Quality: 70})
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestRenderImagePageOutOfRange(t *testing.T) {
	path := writeFixture(t, "one page")
	_, _, _, err := RenderImage(path, 5, ImageOptions{})
	require.Error(t, err)
}

func TestPageCount(t *testing.T) {
	path := writeFixture(t, "count me")
	n, err := PageCount(path)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero uses default", 0, DefaultZoom},
		{"negative uses default", -2, DefaultZoom},
		{"below min", 0.5, MinZoom},
		{"above max", 10, MaxZoom},
		{"in range", 2.2, 2.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampZoom(tt.in); got != tt.want {
				t.Errorf("ClampZoom(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormatAndColor(t *testing.T) {
	if got := ParseFormat("jpg"); got != FormatJPEG {
		t.Errorf("ParseFormat(jpg) = %v", got)
	}
	if got := ParseFormat(""); got != FormatPNG {
		t.Errorf("ParseFormat(empty) = %v", got)
	}
	if got := ParseColorMode("gray"); got != ColorGray {
		t.Errorf("ParseColorMode(gray) = %v", got)
	}
	if got := ParseColorMode("anything"); got != ColorRGB {
		t.Errorf("ParseColorMode(anything) = %v", got)
	}
	if ct := FormatJPEG.ContentType(); ct != "image/jpeg" {
		t.Errorf("jpeg content type = %s", ct)
	}
	if ct := FormatPNG.ContentType(); ct != "image/png" {
		t.Errorf("png content type = %s", ct)
	}
}

func TestExtractTextCap(t *testing.T) {
	path := writeFixture(t, strings.Repeat("words ", 50))
	text, err := ExtractText(path, 1)
	require.NoError(t, err)
	require.LessOrEqual(t, utf8.RuneCountInString(text), MaxTextChars)
}

func TestCapTextCountsCharacters(t *testing.T) {
	// Multi-byte text crossing the cap must be counted in characters and
	// truncated on a rune boundary, never mid-rune.
	long := strings.Repeat("ữ", MaxTextChars+7)
	got := capText(long)
	require.Equal(t, MaxTextChars, utf8.RuneCountInString(got))
	require.True(t, utf8.ValidString(got))
	require.Greater(t, len(got), MaxTextChars) // byte length exceeds the character cap

	exact := strings.Repeat("a", MaxTextChars)
	require.Equal(t, exact, capText(exact))

	short := "dưới giới hạn"
	require.Equal(t, short, capText(short))
}
