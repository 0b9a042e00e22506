package uploads

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of the body is buffered for content detection.
const sniffLen = 3072

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif", "image/avif"}

// extensionByType picks the canonical extension when the client sent none.
var extensionByType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/avif": ".avif",
}

// sniff detects the content type from the first bytes of body and returns a
// reader that still yields the complete body.
func sniff(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("read upload head: %w", err)
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	mediaType, _, perr := mime.ParseMediaType(detected.String())
	if perr != nil {
		mediaType = detected.String()
	}
	return strings.ToLower(mediaType), io.MultiReader(bytes.NewReader(head), body), nil
}

func isAllowedImage(mediaType string) bool {
	for _, candidate := range allowedImageTypes {
		if strings.EqualFold(candidate, mediaType) {
			return true
		}
	}
	return false
}

// declaredType normalizes a client-supplied Content-Type header value.
func declaredType(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
