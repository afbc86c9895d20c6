// Package normalize turns uploaded image bytes into the canonical raster the
// classifier and the object store consume: a JPEG no larger than the
// configured bounding box.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"swapshelf/internal/media/sniffer"
)

const (
	DefaultMaxDimension = 2048
	DefaultJPEGQuality  = 90
	DefaultMaxPixels    = 40_000_000
	canonicalMIME       = "image/jpeg"
	canonicalExt        = ".jpg"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

type Options struct {
	MaxDimension int
	JPEGQuality  int
	MaxPixels    int
}

type Result struct {
	Data   []byte
	MIME   string
	Ext    string
	Image  image.Image
	Width  int
	Height int
}

type Normalizer struct {
	maxDimension int
	quality      int
	maxPixels    int
}

func New(opts Options) *Normalizer {
	n := &Normalizer{
		maxDimension: opts.MaxDimension,
		quality:      opts.JPEGQuality,
		maxPixels:    opts.MaxPixels,
	}
	if n.maxDimension <= 0 {
		n.maxDimension = DefaultMaxDimension
	}
	if n.quality <= 0 || n.quality > 100 {
		n.quality = DefaultJPEGQuality
	}
	if n.maxPixels <= 0 {
		n.maxPixels = DefaultMaxPixels
	}
	return n
}

// Normalize sniffs the real format (the declared content type is not
// trusted), decodes it and returns canonical JPEG bytes. A JPEG already inside
// the bounding box is returned unchanged, so normalizing canonical output is
// a no-op.
func (n *Normalizer) Normalize(data []byte) (Result, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detected, err := sniffer.DetectHead(head)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if detected.Type != sniffer.TypeJPEG && detected.Type != sniffer.TypePNG {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected.MIME)
	}

	// The header is read first: a few bytes can declare a raster far larger
	// than the upload itself.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode %s header: %w", detected.Type, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(n.maxPixels) {
		return Result{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedFormat, cfg.Width, cfg.Height, n.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", detected.Type, err)
	}

	bounds := img.Bounds()
	if detected.Type == sniffer.TypeJPEG && n.withinBounds(bounds) {
		return Result{
			Data:   data,
			MIME:   canonicalMIME,
			Ext:    canonicalExt,
			Image:  img,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		}, nil
	}

	if detected.Type == sniffer.TypePNG {
		img = flatten(img)
	}
	img = downscale(img, n.maxDimension)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(n.quality)); err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}

	out := img.Bounds()
	return Result{
		Data:   buf.Bytes(),
		MIME:   canonicalMIME,
		Ext:    canonicalExt,
		Image:  img,
		Width:  out.Dx(),
		Height: out.Dy(),
	}, nil
}

func (n *Normalizer) withinBounds(b image.Rectangle) bool {
	return b.Dx() <= n.maxDimension && b.Dy() <= n.maxDimension
}

// flatten composites transparent pixels onto white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// downscale resizes so neither side exceeds maxDim, preserving aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
