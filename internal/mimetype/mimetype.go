// Package mimetype determines the MIME type of a file from its name and content.
package mimetype

import (
	"mime"
	"path/filepath"
	"strings"

	gmimetype "github.com/gabriel-vasile/mimetype"
)

const unknown = "application/octet-stream"

// Detect returns the MIME type for a file called name holding content.
// The extension is consulted first, then the content is sniffed. It returns
// false when neither yields anything more specific than raw bytes.
func Detect(name string, content []byte) (string, bool) {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" && !strings.HasPrefix(t, unknown) {
		return t, true
	}
	if len(content) == 0 {
		return "", false
	}
	detected := gmimetype.Detect(content)
	if detected.Is(unknown) {
		return "", false
	}
	return detected.String(), true
}
