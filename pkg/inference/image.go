package inference

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Upload limits for transcription requests.
const (
	MaxImageBytes = 10 << 20
	MaxImages     = 5
)

// AllowedImageTypes are the MIME types accepted for transcription.
var AllowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Image is a binary image payload.
type Image struct {
	Data     []byte
	MIMEType string
	Filename string
}

// IsAllowedImageType reports whether mimeType is one of AllowedImageTypes.
// Parameters such as "; charset=" are ignored.
func IsAllowedImageType(mimeType string) bool {
	mt := NormalizeMIME(mimeType)
	for _, allowed := range AllowedImageTypes {
		if mt == allowed {
			return true
		}
	}
	return false
}

// NormalizeMIME strips parameters and lowercases a media type.
func NormalizeMIME(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

// DetectMIME returns the declared type, or a sniffed type when the
// declaration is missing or generic.
func DetectMIME(declared string, data []byte) string {
	mt := NormalizeMIME(declared)
	if mt == "" || mt == "application/octet-stream" {
		return NormalizeMIME(http.DetectContentType(data))
	}
	return mt
}

// Validate checks a single image against the upload limits.
func (img Image) Validate() error {
	if len(img.Data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyImage, img.Filename)
	}
	if len(img.Data) > MaxImageBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, img.Filename, len(img.Data))
	}
	if !IsAllowedImageType(img.MIMEType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedImageType, img.MIMEType)
	}
	return nil
}

// DataURL encodes the image as a base64 data URL.
func (img Image) DataURL() string {
	return "data:" + NormalizeMIME(img.MIMEType) + ";base64," +
		base64.StdEncoding.EncodeToString(img.Data)
}

// ValidateImages checks the count and every image of a request.
func ValidateImages(images []Image) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	if len(images) > MaxImages {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyImages, len(images), MaxImages)
	}
	for _, img := range images {
		if err := img.Validate(); err != nil {
			return err
		}
	}
	return nil
}
