// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"image"
	"io"
	"path/filepath"
	"strings"

	"cogentcore.org/core/base/iox/imagex"
	"golang.org/x/image/draw"
)

// Texture is a decoded image with an optional mip chain, ready for
// upload. Mips[0] is the full resolution image.
type Texture struct {
	// Name is the name the texture is registered and resolved under.
	Name string

	// Mips holds the image pyramid, largest first. Always has at
	// least one level.
	Mips []*image.RGBA

	// SRGB indicates the pixel data is sRGB encoded, which is the
	// case for color images; normal and data maps are linear.
	SRGB bool
}

// NewTexture returns a texture over the given image, converting to
// RGBA if needed. No mip levels are generated; call
// [Texture.GenerateMips] for filtered minification.
func NewTexture(name string, img image.Image) *Texture {
	return &Texture{Name: name, Mips: []*image.RGBA{toRGBA(img)}, SRGB: true}
}

// ReadTexture decodes an image from the reader. png, jpeg, gif,
// tiff, bmp, and webp are supported.
func ReadTexture(name string, r io.Reader) (*Texture, error) {
	img, _, err := imagex.Read(r)
	if err != nil {
		return nil, err
	}
	return NewTexture(name, img), nil
}

// OpenTexture decodes an image from the given file, using the
// base filename without extension as the texture name.
func OpenTexture(filename string) (*Texture, error) {
	img, _, err := imagex.Open(filename)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return NewTexture(name, img), nil
}

// Image returns the full resolution image.
func (tx *Texture) Image() *image.RGBA {
	return tx.Mips[0]
}

// NumLevels returns the number of mip levels.
func (tx *Texture) NumLevels() int {
	return len(tx.Mips)
}

// GenerateMips builds the full mip pyramid down to 1x1 by repeated
// bilinear halving, replacing any existing levels.
func (tx *Texture) GenerateMips() {
	tx.Mips = tx.Mips[:1]
	cur := tx.Mips[0]
	w, h := cur.Bounds().Dx(), cur.Bounds().Dy()
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), cur, cur.Bounds(), draw.Src, nil)
		tx.Mips = append(tx.Mips, next)
		cur = next
	}
}

// WhiteTexture returns a 1x1 opaque white texture, the fallback for
// unbound texture slots.
func WhiteTexture() *Texture {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 255, 255, 255, 255
	return &Texture{Name: "white", Mips: []*image.RGBA{img}, SRGB: true}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
