// Package apperr carries the error taxonomy shared by the processing pipeline
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindExtraction
	KindRemoteAPI
	KindPersistence
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindExtraction:
		return "extraction"
	case KindRemoteAPI:
		return "remote_api"
	case KindPersistence:
		return "persistence"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified error. Msg is safe to show to users.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Extraction names the offending file.
func Extraction(file string, err error) error {
	return &Error{Kind: KindExtraction, Msg: fmt.Sprintf("%s okunamadı", file), Err: err}
}

func RemoteAPI(msg string, err error) error {
	return &Error{Kind: KindRemoteAPI, Msg: msg, Err: err}
}

func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing text of the first classified error, or
// fallback for unclassified errors.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
