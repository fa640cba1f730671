package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestPrepareJPEG(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodeJPEG(solid(100, 80, color.RGBA{200, 30, 30, 255}))))
	if err != nil {
		t.Fatalf("Prepare JPEG: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", photo.MIME)
	}
	if photo.Width != 100 || photo.Height != 80 {
		t.Errorf("expected 100x80, got %dx%d", photo.Width, photo.Height)
	}
}

func TestPrepareDownscalesKeepingAspect(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodeJPEG(solid(2560, 1280, color.RGBA{0, 128, 0, 255}))))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if photo.Width != MaxDimension || photo.Height != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, photo.Width, photo.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if img.Bounds().Dx() != photo.Width {
		t.Errorf("encoded width %d does not match reported %d", img.Bounds().Dx(), photo.Width)
	}
}

func TestPrepareFlattensTransparency(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodePNG(solid(10, 10, color.RGBA{0, 0, 0, 0}))))
	if err != nil {
		t.Fatalf("Prepare PNG: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	r, g, b, _ := img.At(5, 5).RGBA()
	if r < 0xf000 || g < 0xf000 || b < 0xf000 {
		t.Errorf("expected transparent pixels to become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestPrepareRejectsNonImage(t *testing.T) {
	_, err := Prepare(bytes.NewReader([]byte("these are not the pixels you are looking for")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestPrepareRejectsOversizedUpload(t *testing.T) {
	_, err := Prepare(bytes.NewReader(make([]byte, MaxUploadBytes+1)))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodePNG(solid(600, 900, color.RGBA{250, 200, 0, 255}))))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	thumb, err := Thumbnail(photo.Data)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if thumb.Height != ThumbDimension || thumb.Width != 600*ThumbDimension/900 {
		t.Errorf("unexpected thumbnail size %dx%d", thumb.Width, thumb.Height)
	}
}
