package mimetype

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    []byte
		wantPrefix string
		wantOK     bool
	}{
		{name: "extension wins", file: "data.json", content: []byte{0x00, 0x01}, wantPrefix: "application/json", wantOK: true},
		{name: "sniffed png", file: "image", content: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), wantPrefix: "image/png", wantOK: true},
		{name: "sniffed text", file: "README", content: []byte("hello world\n"), wantPrefix: "text/plain", wantOK: true},
		{name: "empty without extension", file: "empty", content: nil, wantOK: false},
		{name: "random bytes", file: "blob", content: []byte{0x07, 0x00, 0xfe, 0x13, 0x00, 0x01}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.file, tt.content)
			if ok != tt.wantOK {
				t.Fatalf("Detect() ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if ok && !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Detect() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
