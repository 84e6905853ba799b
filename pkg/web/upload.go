package web

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// MaxUploadBytes is the per-file limit for audio and image uploads.
const MaxUploadBytes = 10 << 20

// AllowedAudioTypes are the media types /discord/play accepts.
var AllowedAudioTypes = []string{"audio/mpeg", "audio/wav", "audio/ogg"}

func isAllowedAudioType(contentType string) bool {
	mt := mediaType(contentType)
	for _, allowed := range AllowedAudioTypes {
		if mt == allowed {
			return true
		}
	}
	return false
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// uploadedFiles returns every file part of a multipart request, ordered
// by field name. A request that is not multipart has no files.
func uploadedFiles(c *fiber.Ctx) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}

	fields := make([]string, 0, len(form.File))
	for name := range form.File {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var files []*multipart.FileHeader
	for _, name := range fields {
		files = append(files, form.File[name]...)
	}
	return files
}

// readUpload copies a file part into memory. The request buffers are
// reused once the handler returns, so playback must not hold onto them.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if len(data) > MaxUploadBytes {
		return nil, errTooLarge
	}
	return data, nil
}

var errTooLarge = fiber.NewError(fiber.StatusBadRequest, "File too large. Maximum size is 10MB.")
