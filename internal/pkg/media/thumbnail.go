package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// ThumbnailMaxDim bounds the longer edge of generated thumbnails.
const ThumbnailMaxDim = 320

// MakeThumbnail downscales an image to fit within ThumbnailMaxDim on its
// longer edge, preserving aspect ratio, and re-encodes it as PNG. Images
// already small enough are still re-encoded so thumbnails have a uniform
// format.
func MakeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, ThumbnailMaxDim, ThumbnailMaxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
