package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrImageTooLarge is returned when an uploaded image exceeds the size cap.
	ErrImageTooLarge = errors.New("image exceeds the maximum allowed size")
	// ErrUnsupportedImage is returned for non-image or unsupported image content.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrNoImage is returned when an operation needs an image and none is pending.
	ErrNoImage = errors.New("no image selected or captured")
)

var supportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Image is an in-memory still image, the wire format between the capture
// surface and the nutrition pipeline.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI encodes the image as a base64 data URI.
func (img Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}

// ParseDataURI decodes a "data:<mime>;base64,<data>" URI back into an Image.
func ParseDataURI(uri string) (Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: not a data URI", ErrUnsupportedImage)
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return Image{}, fmt.Errorf("%w: data URI is not base64 encoded", ErrUnsupportedImage)
	}
	if !supportedMIMETypes[mimeType] {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}

// ReadImage reads an image from r, enforcing maxBytes and sniffing the MIME
// type from the content. The reader is consumed at most maxBytes+1 bytes.
func ReadImage(r io.Reader, maxBytes int64) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return Image{}, ErrImageTooLarge
	}
	if len(data) == 0 {
		return Image{}, ErrNoImage
	}

	mimeType := http.DetectContentType(data)
	if !supportedMIMETypes[mimeType] {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}
