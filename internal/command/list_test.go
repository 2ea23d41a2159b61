package command

import (
	"errors"
	"strings"
	"testing"

	"stash-go/internal/stash"
)

func TestList(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "default lists both", args: nil, want: "Inbox/\nArchive/\nreadme.txt\n"},
		{name: "collections only", args: []string{"-c"}, want: "Inbox/\nArchive/\n"},
		{name: "items only", args: []string{"--items", "/"}, want: "readme.txt\n"},
		{name: "subcollection", args: []string{"/Inbox"}, want: "mail.eml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			inbox := f.store.AddCollection(stash.RootID, "Inbox")
			f.store.AddCollection(stash.RootID, "Archive")
			f.store.AddItem(stash.RootID, "readme.txt", "text/plain", []byte("hello"))
			f.store.AddItem(inbox.ID, "mail.eml", "message/rfc822", []byte("From: a"))

			rec := f.run(t, NewListCommand(f.env), tt.args...)

			if rec.exitCode() != ExitOK {
				t.Fatalf("exit code = %d, errors %v", rec.exitCode(), rec.errors)
			}
			if got := f.out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestList_Details(t *testing.T) {
	f := newFixture()
	f.store.AddItem(stash.RootID, "readme.txt", "text/plain", []byte("hello"))

	rec := f.run(t, NewListCommand(f.env), "-i", "-d")

	if rec.exitCode() != ExitOK {
		t.Fatalf("exit code = %d", rec.exitCode())
	}
	fields := strings.Fields(f.out.String())
	want := []string{"1", "readme.txt", "text/plain", "5"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %q, want %q", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestList_DirectCollectionID(t *testing.T) {
	f := newFixture()
	inbox := f.store.AddCollection(stash.RootID, "Inbox")
	f.store.AddItem(inbox.ID, "mail.eml", "message/rfc822", nil)

	rec := f.run(t, NewListCommand(f.env), "1")

	if rec.exitCode() != ExitOK {
		t.Fatalf("exit code = %d, errors %v", rec.exitCode(), rec.errors)
	}
	if f.out.String() != "mail.eml\n" {
		t.Errorf("output = %q", f.out.String())
	}
	if n := f.store.CallCount("ResolveChild"); n != 0 {
		t.Errorf("ResolveChild calls = %d, want 0", n)
	}
}

func TestList_ItemsFailureStillPrintsCollections(t *testing.T) {
	f := newFixture()
	f.store.AddCollection(stash.RootID, "Inbox")
	f.store.FailOn("FetchItems", "", errors.New("timeout"))

	rec := f.run(t, NewListCommand(f.env))

	if rec.exitCode() != ExitPartial {
		t.Errorf("exit code = %d, want %d", rec.exitCode(), ExitPartial)
	}
	if f.out.String() != "Inbox/\n" {
		t.Errorf("output = %q", f.out.String())
	}
	if len(rec.errors) != 1 || !strings.Contains(rec.errors[0], "timeout") {
		t.Errorf("errors = %q", rec.errors)
	}
}

func TestList_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.run(t, NewListCommand(f.env), "/missing")

	if rec.exitCode() != ExitFailure {
		t.Errorf("exit code = %d, want %d", rec.exitCode(), ExitFailure)
	}
	if f.store.CallCount("FetchChildren") != 0 || f.store.CallCount("FetchItems") != 0 {
		t.Errorf("fetches after failed resolution: %v", f.store.Calls())
	}
}
