package storage

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

var extensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
}

// DetectImage decodes the image header and returns the file extension for its format.
func DetectImage(r io.Reader) (string, error) {
	_, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", ErrUnsupportedImage
	}

	ext, ok := extensions[format]
	if !ok {
		return "", ErrUnsupportedImage
	}

	return ext, nil
}
