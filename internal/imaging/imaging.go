// Package imaging prepares local post screenshots for display: MIME type
// detection, thumbnails and a short EXIF summary.
package imaging

import (
	"path/filepath"
	"strings"
)

// SupportedImageExtensions maps the image extensions Gemini accepts to their MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// FallbackMIMEType is used when neither the client nor the extension names a type.
const FallbackMIMEType = "application/octet-stream"

// MIMEType returns the MIME type implied by name's extension.
func MIMEType(name string) string {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mimeType
	}
	return FallbackMIMEType
}
