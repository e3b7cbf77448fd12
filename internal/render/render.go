package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// ColorMode selects the output color space.
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Format selects the output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Zoom limits match the original viewer's slider.
const (
	MinZoom     = 1.0
	MaxZoom     = 3.0
	DefaultZoom = 1.5
)

// MaxTextChars caps extracted page text, counted in characters.
const MaxTextChars = 230000

// baseDPI is the PDF user-space resolution; zoom is a multiplier on it.
const baseDPI = 72.0

// ImageOptions configures page rasterization.
type ImageOptions struct {
	Zoom    float64
	Format  Format
	Color   ColorMode
	Quality int // JPEG only
}

// ClampZoom pins z into [MinZoom, MaxZoom], substituting DefaultZoom for
// non-positive values.
func ClampZoom(z float64) float64 {
	if z <= 0 {
		return DefaultZoom
	}
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// ZoomToDPI converts a zoom factor to the DPI go-fitz renders at.
func ZoomToDPI(zoom float64) float64 { return baseDPI * zoom }

// ExtractText returns the text of one page of the PDF at path. pageNum is
// 1-based. Output is capped at MaxTextChars.
func ExtractText(path string, pageNum int) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	idx, err := pageIndex(doc, pageNum)
	if err != nil {
		return "", err
	}
	text, err := doc.Text(idx)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", pageNum, err)
	}
	text = capText(text)
	log.Debug().Str("pdf", path).Int("page", pageNum).Int("chars", len(text)).Msg("extracted page text")
	return text, nil
}

// RenderImage rasterizes one page of the PDF at path. pageNum is 1-based.
// Returns encoded image bytes plus pixel dimensions.
func RenderImage(path string, pageNum int, opts ImageOptions) ([]byte, int, int, error) {
	opts = normalize(opts)

	doc, err := fitz.New(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	idx, err := pageIndex(doc, pageNum)
	if err != nil {
		return nil, 0, 0, err
	}
	img, err := doc.ImageDPI(idx, ZoomToDPI(opts.Zoom))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("render page %d: %w", pageNum, err)
	}

	bounds := img.Bounds()
	var finalImg image.Image = img
	if opts.Color == ColorGray {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, image.Point{}, draw.Src)
		finalImg = grayImg
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, finalImg, &jpeg.Options{Quality: opts.Quality}); err != nil {
			return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, finalImg); err != nil {
			return nil, 0, 0, fmt.Errorf("encode png: %w", err)
		}
	}

	log.Debug().
		Str("pdf", path).
		Int("page", pageNum).
		Float64("zoom", opts.Zoom).
		Str("format", string(opts.Format)).
		Str("color", string(opts.Color)).
		Int("bytes", buf.Len()).
		Msg("rendered page image")

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat maps a query-string value to a Format, defaulting to PNG.
func ParseFormat(s string) Format {
	switch s {
	case "jpeg", "jpg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// ParseColorMode maps a query-string value to a ColorMode, defaulting to RGB.
func ParseColorMode(s string) ColorMode {
	if s == "gray" || s == "grayscale" {
		return ColorGray
	}
	return ColorRGB
}

func normalize(opts ImageOptions) ImageOptions {
	opts.Zoom = ClampZoom(opts.Zoom)
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if opts.Color == "" {
		opts.Color = ColorRGB
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 85
	}
	return opts
}

// capText truncates text to MaxTextChars characters. Truncation happens on a
// rune boundary so multi-byte text stays valid UTF-8.
func capText(text string) string {
	if len(text) <= MaxTextChars {
		return text
	}
	count := 0
	for i := range text {
		if count == MaxTextChars {
			return text[:i]
		}
		count++
	}
	return text
}

func pageIndex(doc *fitz.Document, pageNum int) (int, error) {
	idx := pageNum - 1 // go-fitz uses 0-based indexing
	if idx < 0 || idx >= doc.NumPage() {
		return 0, fmt.Errorf("page %d out of range (document has %d pages)", pageNum, doc.NumPage())
	}
	return idx, nil
}
