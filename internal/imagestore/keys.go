package imagestore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// extensions maps the accepted upload content types to object key suffixes.
// Anything else is rejected before it reaches the bucket.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Allowed reports whether the content type is an accepted image type.
func Allowed(contentType string) bool {
	_, ok := extensions[contentType]
	return ok
}

// NewKey generates a unique object key for an image of the given content
// type, or an error for unsupported types.
func NewKey(contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return "images/" + uuid.NewString() + ext, nil
}

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
