package shell

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: `add "/My Folder" file.txt`, want: []string{"add", "/My Folder", "file.txt"}},
		{line: "list /Inbox", want: []string{"list", "/Inbox"}},
		{line: "  list\t\t/Inbox  ", want: []string{"list", "/Inbox"}},
		{line: `create / ""`, want: []string{"create", "/", ""}},
		{line: `add "/tab	inside" x`, want: []string{"add", "/tab\tinside", "x"}},
		{line: `dump "/unterminated path`, want: []string{"dump", "/unterminated path"}},
		{line: "", want: nil},
		{line: "   ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Tokenize(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
