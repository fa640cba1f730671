package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why the ledger rejected an operation.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindNotOwner
	KindInvalidState
	KindNotFound
	KindDuplicateKey
	KindInsufficientPayment
	KindInvalidArgument
)

var kindNames = [...]string{
	KindUnknown:             "Unknown",
	KindUnauthorized:        "Unauthorized",
	KindNotOwner:            "NotOwner",
	KindInvalidState:        "InvalidState",
	KindNotFound:            "NotFound",
	KindDuplicateKey:        "DuplicateKey",
	KindInsufficientPayment: "InsufficientPayment",
	KindInvalidArgument:     "InvalidArgument",
}

var kindMessages = [...]string{
	KindUnknown:             "unknown error",
	KindUnauthorized:        "unauthorized",
	KindNotOwner:            "not the owner",
	KindInvalidState:        "invalid state",
	KindNotFound:            "not found",
	KindDuplicateKey:        "duplicate key",
	KindInsufficientPayment: "insufficient payment",
	KindInvalidArgument:     "invalid argument",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Error is a rejection of a ledger operation. A rejected operation leaves the
// ledger exactly as it was.
type Error struct {
	Kind Kind
	Op   string
	UPC  uint64
	Msg  string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.UPC != 0 {
			fmt.Fprintf(&b, " upc %d", e.UPC)
		}
		b.WriteString(": ")
	}
	if int(e.Kind) < len(kindMessages) {
		b.WriteString(kindMessages[e.Kind])
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

// Is matches on Kind, and on Op when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrNotOwner            = &Error{Kind: KindNotOwner}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrDuplicateKey        = &Error{Kind: KindDuplicateKey}
	ErrInsufficientPayment = &Error{Kind: KindInsufficientPayment}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
)

// ErrNotInitialized is returned by Open when no administrator has been fixed yet.
var ErrNotInitialized = errors.New("ledger not initialized")

// KindOf returns the rejection kind carried by err, or KindUnknown for
// infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, upc uint64, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, UPC: upc, Msg: fmt.Sprintf(format, args...)}
}
