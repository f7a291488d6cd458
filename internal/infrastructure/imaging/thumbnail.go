// Package imaging validates uploaded product images and produces thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"net/http"

	"golang.org/x/image/draw"
)

// Defaults for catalog thumbnails
const (
	DefaultThumbnailSize = 300
	DefaultJPEGQuality   = 82
	MaxPixels            = 40_000_000
)

var (
	// ErrUnsupportedFormat is returned for files that are not jpeg, png or gif
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrImageTooLarge is returned for images above MaxPixels
	ErrImageTooLarge = errors.New("image dimensions too large")
)

var allowedContentTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// Image is a decoded upload
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
	Width       int
	Height      int
	img         image.Image
}

// Decode sniffs the content type from the bytes (the client supplied header
// is not trusted), checks dimensions and decodes the image.
func Decode(data []byte) (*Image, error) {
	contentType := http.DetectContentType(data)
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &Image{
		Data:        data,
		ContentType: contentType,
		Extension:   ext,
		Width:       cfg.Width,
		Height:      cfg.Height,
		img:         img,
	}, nil
}

// FitSize returns the dimensions of w x h scaled down to fit in limit x limit
// with the aspect ratio preserved. Smaller images keep their size.
func FitSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}

// Thumbnail scales the image to fit in size x size and encodes it as JPEG.
// Transparent areas are flattened onto white.
func (i *Image) Thumbnail(size, quality int) ([]byte, error) {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	w, h := FitSize(i.Width, i.Height, size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), i.img, i.img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
