// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package label

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	// decoders
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/jeranaias/habitrun/internal/gemini"
)

// Image defaults.
const (
	DefaultMaxDim      = 1200
	DefaultJPEGQuality = 90

	// maxImageFileSize rejects files far larger than any label photo.
	maxImageFileSize = 32 << 20
)

// ImageOptions bound the uploaded image.
type ImageOptions struct {
	MaxDim  int
	Quality int
}

// LoadImage reads a JPEG, PNG or GIF, scales it to fit MaxDim x MaxDim and
// re-encodes it as JPEG.
func LoadImage(path string, opts ImageOptions) (gemini.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return gemini.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > maxImageFileSize {
		return gemini.Image{}, fmt.Errorf("image %s is too large (%d bytes)", path, info.Size())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return gemini.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return EncodeImage(raw, opts)
}

// EncodeImage decodes raw image bytes and prepares them for upload.
func EncodeImage(raw []byte, opts ImageOptions) (gemini.Image, error) {
	if opts.MaxDim <= 0 {
		opts.MaxDim = DefaultMaxDim
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return gemini.Image{}, fmt.Errorf("unsupported image: %w", err)
	}

	dst := downscale(src, opts.MaxDim)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return gemini.Image{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return gemini.NewImage("image/jpeg", buf.Bytes()), nil
}

// downscale fits src into maxDim x maxDim keeping the aspect ratio. Smaller
// images are returned unchanged.
func downscale(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	scale := float64(maxDim) / float64(w)
	if hs := float64(maxDim) / float64(h); hs < scale {
		scale = hs
	}
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
