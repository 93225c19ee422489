package media

import (
	"bytes"
	"image/png"
	"testing"
)

func TestMakeThumbnail(t *testing.T) {
	data := testPNG(t, 800, 600)

	thumb, err := MakeThumbnail(data)
	if err != nil {
		t.Fatalf("make thumbnail: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > ThumbnailMaxDim || bounds.Dy() > ThumbnailMaxDim {
		t.Errorf("thumbnail %dx%d exceeds max dimension %d", bounds.Dx(), bounds.Dy(), ThumbnailMaxDim)
	}
	// Aspect ratio preserved: 800x600 fits to 320x240.
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("expected 320x240, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestMakeThumbnailRejectsGarbage(t *testing.T) {
	if _, err := MakeThumbnail([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}
