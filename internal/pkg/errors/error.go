package errors

import (
	"errors"
	"fmt"
)

// Op represents an operation (package.function).
// For example iam.CreateRole
type Op string

// Err provides the ability to specify a Code, translation, Msg, Op and a
// wrapped error.
type Err struct {
	// Code is the error's code, which can be used to get the error's
	// errorCodeInfo, which contains the error's Kind and fault code.
	Code Code

	// Translation overrides the Code's default translation code when set.
	Translation string

	// Msg for the error, naming the offending identifier where one exists.
	Msg string

	// Op represents the operation raising/propagating an error and is optional.
	Op Op

	// Wrapped is the error which this Err wraps and will be nil if there's no
	// error to wrap.
	Wrapped error
}

// New creates a new Err with the given code, op and msg. Supported options
// are WithWrap and WithTranslation.
func New(c Code, op Op, msg string, opt ...Option) error {
	opts := GetOpts(opt...)
	return &Err{
		Code:        c,
		Translation: opts.withTranslation,
		Msg:         msg,
		Op:          op,
		Wrapped:     opts.withErrWrapped,
	}
}

// Wrap creates a new Err from the provided err and op, preserving any Code
// and translation from the wrapped error. Plain errors become InternalError.
func Wrap(err error, op Op, opt ...Option) error {
	if err == nil {
		return nil
	}
	opts := GetOpts(opt...)
	var e *Err
	if errors.As(err, &e) {
		translation := e.Translation
		if opts.withTranslation != "" {
			translation = opts.withTranslation
		}
		return &Err{
			Code:        e.Code,
			Translation: translation,
			Msg:         e.Msg,
			Op:          op,
			Wrapped:     err,
		}
	}
	return &Err{
		Code:        InternalError,
		Translation: opts.withTranslation,
		Msg:         err.Error(),
		Op:          op,
		Wrapped:     err,
	}
}

// Convert returns err as an *Err. Errors outside the taxonomy are reported
// as InternalError.
func Convert(err error) *Err {
	if err == nil {
		return nil
	}
	var e *Err
	if errors.As(err, &e) {
		return e
	}
	return &Err{Code: InternalError, Msg: err.Error(), Wrapped: err}
}

// Info about the Err
func (e *Err) Info() Info {
	if e == nil {
		return errorCodeInfo[Unknown]
	}
	return e.Code.Info()
}

// Fault returns the stable fault code, e.g. "Signer.TokenNotFound".
func (e *Err) Fault() string {
	return e.Info().Fault
}

// TranslationCode returns the translation override or the Code's default.
func (e *Err) TranslationCode() string {
	if e == nil {
		return ""
	}
	if e.Translation != "" {
		return e.Translation
	}
	return e.Info().Translation
}

// Error satisfies the error interface and renders "<fault>: <msg>".
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" && e.Wrapped != nil {
		msg = e.Wrapped.Error()
	}
	if msg == "" {
		return e.Fault()
	}
	return fmt.Sprintf("%s: %s", e.Fault(), msg)
}

// Unwrap implements the errors.Unwrap interface and allows callers to use the
// errors.Is() and errors.As() functions effectively for any wrapped errors.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// Is reports whether target is an *Err with the same Code.
func (e *Err) Is(target error) bool {
	t, ok := target.(*Err)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Match reports whether err, or any error it wraps, is an *Err with the
// given Code.
func Match(c Code, err error) bool {
	if err == nil {
		return false
	}
	var e *Err
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == c
}

// As is the equivalent of the std errors.As, re-exported so callers do not
// need both packages.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is the equivalent of the std errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
