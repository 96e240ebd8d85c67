package vocab

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines vocabulary error kinds.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindMissingSurface ErrorKind = "missing_surface"
	KindExportService  ErrorKind = "export_service"
	KindDisabled       ErrorKind = "disabled"
	KindBusy           ErrorKind = "busy"
	KindNotFound       ErrorKind = "not_found"
	KindTimeout        ErrorKind = "timeout"
	KindCanceled       ErrorKind = "canceled"
	KindInternal       ErrorKind = "internal"
	KindNotImpl        ErrorKind = "not_implemented"
)

// VocabError wraps errors with a kind.
type VocabError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *VocabError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *VocabError) Unwrap() error {
	return e.Err
}

// NewError creates a new vocabulary error.
func NewError(kind ErrorKind, msg string, err error) *VocabError {
	return &VocabError{Kind: kind, Msg: msg, Err: err}
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var vocabErr *VocabError
	if errors.As(err, &vocabErr) && vocabErr.Msg != "" {
		msg = vocabErr.Msg
	}

	switch kind {
	case KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode(string(kind))
	case KindDisabled, KindBusy:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode(string(kind))
	case KindMissingSurface, KindNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode(string(kind))
	case KindExportService:
		return errorslib.New(msg, errorslib.CategoryExternal).WithTextCode(string(kind))
	case KindTimeout, KindCanceled, KindNotImpl:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode(string(kind))
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode(string(KindInternal))
	}
}

// KindFromError maps an error to its vocabulary error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var vocabErr *VocabError
	if errors.As(err, &vocabErr) {
		return vocabErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindFromError(err) == kind
}
