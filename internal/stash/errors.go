package stash

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the errors a command can surface to the user.
type Kind int

const (
	KindUnknown Kind = iota
	// InvalidUsage means bad arguments; detected before any store call.
	InvalidUsage
	// NotFound means a path segment or handle matched nothing.
	NotFound
	// Ambiguous means a path segment matched more than one child.
	Ambiguous
	// StoreFailure is any other error reported by the store.
	StoreFailure
	// PerUnitFailure is a failure of a single unit inside a multi-unit command.
	PerUnitFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidUsage:
		return "invalid usage"
	case NotFound:
		return "not found"
	case Ambiguous:
		return "ambiguous"
	case StoreFailure:
		return "store failure"
	case PerUnitFailure:
		return "unit failure"
	default:
		return "unknown"
	}
}

// Error is the typed error carried through resolution and command execution.
// Segment is 1-based and only set for errors raised while walking a path.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Segment int
	Name    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Kind == NotFound && e.Name != "":
		fmt.Fprintf(&b, "no collection or item named %q", e.Name)
	case e.Kind == Ambiguous && e.Name != "":
		fmt.Fprintf(&b, "more than one collection or item named %q", e.Name)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Path != "" && e.Segment > 0 {
		fmt.Fprintf(&b, " (segment %d of %q)", e.Segment, e.Path)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Conditions reported by FileSystem.ReadFile.
var (
	ErrFileNotExist   = errors.New("file does not exist")
	ErrFileUnreadable = errors.New("file cannot be read")
)
