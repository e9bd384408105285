// Package webp adapts github.com/chai2010/webp to the narrow codec
// interface the SOG writer/reader needs: lossless RGBA encode and RGBA
// decode (SPEC_FULL.md §6 "WebP codec (consumed interface)").
package webp

import (
	"bytes"
	"image"
	"image/color"

	"github.com/chai2010/webp"

	"github.com/gsplat/splat-transform/internal/errs"
)

// Image is the decoded form: packed RGBA bytes plus dimensions.
type Image struct {
	RGBA   []byte
	Width  int
	Height int
}

// EncodeLosslessRGBA encodes a packed RGBA buffer (w*h*4 bytes, row-major,
// top-to-bottom) as a lossless WebP image.
func EncodeLosslessRGBA(rgba []byte, w, h int) ([]byte, error) {
	if len(rgba) != w*h*4 {
		return nil, errs.Newf(errs.InvalidArgument, "webp.encode", "rgba buffer length %d does not match %dx%d", len(rgba), w, h)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, rgba)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, errs.New(errs.CodecFailure, "webp.encode", err)
	}
	return buf.Bytes(), nil
}

// DecodeRGBA decodes a WebP buffer into packed RGBA bytes plus dimensions.
func DecodeRGBA(buf []byte) (*Image, error) {
	img, err := webp.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, errs.New(errs.CodecFailure, "webp.decode", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &Image{RGBA: make([]byte, w*h*4), Width: w, Height: h}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := colorAt(img, x, y)
			out.RGBA[i], out.RGBA[i+1], out.RGBA[i+2], out.RGBA[i+3] = r, g, b, a
			i += 4
		}
	}
	return out, nil
}

func colorAt(img image.Image, x, y int) (r, g, b, a uint8) {
	nc := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return nc.R, nc.G, nc.B, nc.A
}
