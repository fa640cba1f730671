// Package imaging normalizes produce photos before they are stored with an
// item.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// MaxUploadBytes caps the size of an incoming photo.
	MaxUploadBytes = 8 << 20
	// MaxDimension is the longest edge of a stored photo.
	MaxDimension = 1280
	// ThumbDimension is the longest edge of a thumbnail.
	ThumbDimension = 256
	JPEGQuality    = 85
)

var (
	ErrTooLarge          = errors.New("photo exceeds upload limit")
	ErrUnsupportedFormat = errors.New("unsupported photo format")
)

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Photo is an encoded, size-bounded picture.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Prepare reads an uploaded photo, sniffs its format from the bytes, fits it
// within MaxDimension and re-encodes it as JPEG on a white background.
func Prepare(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return encode(fit(img, MaxDimension))
}

// Thumbnail shrinks a stored photo to ThumbDimension.
func Thumbnail(data []byte) (*Photo, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return encode(fit(img, ThumbDimension))
}

func decode(data []byte) (image.Image, error) {
	detected := http.DetectContentType(data)
	dec, ok := decoders[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s (JPEG, PNG and WebP accepted)", ErrUnsupportedFormat, detected)
	}
	img, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", detected, err)
	}
	return img, nil
}

func encode(img image.Image) (*Photo, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img so its longest edge is at most maxDim and composites it over
// white, since JPEG has no alpha channel. Smaller images are never upscaled.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := w, h
	if w > maxDim || h > maxDim {
		if w > h {
			newW = maxDim
			newH = max(1, h*maxDim/w)
		} else {
			newH = maxDim
			newW = max(1, w*maxDim/h)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if newW == w && newH == h {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	}
	return dst
}
