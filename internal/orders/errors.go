package orders

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota // input rusak, ditolak sebelum menyentuh store
	KindNotFound
	KindConflict // stok tidak cukup
	KindState    // status target tidak valid / edge ditolak
)

type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validationf(format string, a ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, a...)}
}

func NotFoundf(format string, a ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, a...)}
}

func Conflictf(format string, a ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, a...)}
}

func Statef(format string, a ...any) *Error {
	return &Error{Kind: KindState, Msg: fmt.Sprintf(format, a...)}
}

// KindOf mengembalikan kind dari err jika err (atau wrap-nya) *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
