package stash

import "testing"

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOK   bool
		wantID   int64
		wantItem bool
	}{
		{name: "collection", input: "stash:?collection=12", wantOK: true, wantID: 12},
		{name: "root collection", input: "stash:?collection=0", wantOK: true, wantID: 0},
		{name: "item", input: "stash:?item=7", wantOK: true, wantID: 7, wantItem: true},
		{name: "negative id", input: "stash:?item=-1"},
		{name: "unknown key", input: "stash:?tag=3"},
		{name: "missing value", input: "stash:?collection"},
		{name: "not numeric", input: "stash:?collection=abc"},
		{name: "plain path", input: "/Inbox"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := ParseURL(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseURL(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if h.HandleID() != tt.wantID {
				t.Errorf("HandleID() = %d, want %d", h.HandleID(), tt.wantID)
			}
			_, isItem := h.(Item)
			if isItem != tt.wantItem {
				t.Errorf("ParseURL(%q) item = %v, want %v", tt.input, isItem, tt.wantItem)
			}
			if h.URL() != tt.input {
				t.Errorf("URL() = %q, want %q", h.URL(), tt.input)
			}
		})
	}
}

func TestParseCollectionID(t *testing.T) {
	if c, ok := ParseCollectionID("42"); !ok || c.ID != 42 {
		t.Errorf("ParseCollectionID(42) = %v, %v", c, ok)
	}
	for _, s := range []string{"", "Inbox", "-3", "4x"} {
		if _, ok := ParseCollectionID(s); ok {
			t.Errorf("ParseCollectionID(%q) ok = true, want false", s)
		}
	}
}

func TestHandleValidity(t *testing.T) {
	if !Root().Valid() || !Root().IsRoot() {
		t.Error("Root() should be a valid root collection")
	}
	if (Collection{ID: InvalidID}).Valid() {
		t.Error("collection with InvalidID should not be valid")
	}
	if (Item{ID: InvalidID}).Valid() {
		t.Error("item with InvalidID should not be valid")
	}
	if got := Root().DisplayName(); got != "/" {
		t.Errorf("DisplayName() = %q, want %q", got, "/")
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Inbox"); err != nil {
		t.Errorf("ValidateName(Inbox) error = %v", err)
	}
	for _, name := range []string{"", "a/b", ".", ".."} {
		err := ValidateName(name)
		if KindOf(err) != InvalidUsage {
			t.Errorf("ValidateName(%q) kind = %v, want %v", name, KindOf(err), InvalidUsage)
		}
	}
}
