package legend

import (
	"bytes"
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // register WebP decoding
)

// DefaultFormat is the fallback output media type.
const DefaultFormat = "image/png"

// mediaTypeFormats maps the supported output media types to encoders.
var mediaTypeFormats = map[string]imaging.Format{
	"image/png":  imaging.PNG,
	"image/jpeg": imaging.JPEG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

// formatsWithAlpha lists output media types that preserve transparency.
var formatsWithAlpha = map[string]struct{}{
	"image/png": {},
}

// SupportedFormat reports whether the media type can be produced.
func SupportedFormat(mediaType string) bool {
	_, ok := mediaTypeFormats[mediaType]
	return ok
}

func formatHasAlpha(mediaType string) bool {
	_, ok := formatsWithAlpha[mediaType]
	return ok
}

// imageEntry is one image going into composition. format holds the media
// type the data is already encoded in, or "" when unknown (custom images).
type imageEntry struct {
	layer  string
	data   []byte
	format string
}

func encodeImage(img image.Image, mediaType string) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, mediaTypeFormats[mediaType]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// placeholderImage is a 1x1 opaque white image in the target format,
// substituted for any entry that failed to resolve.
func placeholderImage(mediaType string) []byte {
	img := imaging.New(1, 1, color.NRGBA{255, 255, 255, 255})
	data, err := encodeImage(img, mediaType)
	if err != nil {
		// PNG encoding of a 1x1 canvas cannot fail.
		data, _ = encodeImage(img, DefaultFormat)
	}
	return data
}

// flattenToWhite composites the image over an opaque white background,
// removing transparency for formats without an alpha channel.
func flattenToWhite(img image.Image) image.Image {
	background := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.NRGBA{255, 255, 255, 255})
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

// rescaleForDPI scales a custom legend image to the requested DPI relative
// to the 90 DPI base, re-encoding as PNG to preserve any alpha channel.
// On any failure the original bytes are returned unchanged.
func (s *Service) rescaleForDPI(data []byte, dpi, layer string) []byte {
	scaleDPI, err := strconv.ParseFloat(dpi, 64)
	if err != nil || scaleDPI <= 0 {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		s.log.Error().Err(err).Str("layer", layer).Msg("could not resize legend image")
		return data
	}
	scale := scaleDPI / 90.0
	w := int(float64(img.Bounds().Dx()) * scale)
	h := int(float64(img.Bounds().Dy()) * scale)
	scaled := imaging.Resize(img, w, h, imaging.Lanczos)
	out, err := encodeImage(scaled, DefaultFormat)
	if err != nil {
		s.log.Error().Err(err).Str("layer", layer).Msg("could not re-encode resized legend image")
		return data
	}
	return out
}

// composeImage converts and stacks the per-layer images into the final
// output. Single entries already in the target format pass through
// untouched; decode or encode failures degrade to placeholders.
func (s *Service) composeImage(entries []imageEntry, mediaType string) []byte {
	if len(entries) == 1 {
		entry := entries[0]
		if entry.format == mediaType {
			return entry.data
		}
		img, err := imaging.Decode(bytes.NewReader(entry.data))
		if err != nil {
			s.log.Error().Err(err).Str("layer", entry.layer).
				Msgf("could not convert legend image to %s", mediaType)
			return placeholderImage(mediaType)
		}
		var converted image.Image = img
		if !formatHasAlpha(mediaType) {
			converted = flattenToWhite(converted)
		}
		out, err := encodeImage(converted, mediaType)
		if err != nil {
			s.log.Error().Err(err).Str("layer", entry.layer).
				Msgf("could not convert legend image to %s", mediaType)
			return placeholderImage(mediaType)
		}
		return out
	}

	// Decode everything first; failed entries contribute no height.
	images := make([]image.Image, len(entries))
	width, height := 0, 0
	for i, entry := range entries {
		img, err := imaging.Decode(bytes.NewReader(entry.data))
		if err != nil {
			s.log.Error().Err(err).Str("layer", entry.layer).
				Msg("could not decode legend image for composition")
			continue
		}
		var decoded image.Image = img
		if !formatHasAlpha(mediaType) {
			decoded = flattenToWhite(decoded)
		}
		images[i] = decoded
		if w := decoded.Bounds().Dx(); w > width {
			width = w
		}
		height += decoded.Bounds().Dy()
	}
	if width == 0 || height == 0 {
		return placeholderImage(mediaType)
	}

	canvas := imaging.New(width, height, color.NRGBA{255, 255, 255, 255})
	y := 0
	for _, img := range images {
		if img == nil {
			continue
		}
		canvas = imaging.Paste(canvas, img, image.Pt(0, y))
		y += img.Bounds().Dy()
	}

	out, err := encodeImage(canvas, mediaType)
	if err != nil {
		s.log.Error().Err(err).Msgf("could not encode composite legend as %s", mediaType)
		return placeholderImage(mediaType)
	}
	return out
}
