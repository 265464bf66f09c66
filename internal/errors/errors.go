package errors

import (
	"errors"
	"fmt"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// codedError carries a code, an optional message override, an optional
// cause and optional context data. Values are never mutated; the With
// methods return modified copies.
type codedError struct {
	code    ErrorCode
	message string
	cause   error
	data    any
}

func (e *codedError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}

	switch {
	case e.data != nil:
		return fmt.Sprintf("%s: %v", msg, e.data)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", msg, e.cause)
	default:
		return msg
	}
}

func (e *codedError) Code() ErrorCode {
	return e.code
}

func (e *codedError) WithMessage(msg string) Error {
	c := *e
	c.message = msg
	return &c
}

func (e *codedError) WithData(data any) Error {
	c := *e
	c.data = data
	return &c
}

func (e *codedError) Unwrap() error {
	return e.cause
}

type factory struct{}

func (factory) New(code ErrorCode) Error {
	return &codedError{code: code}
}

func (factory) Wrap(code ErrorCode, err error) Error {
	return &codedError{code: code, cause: err}
}

func (factory) WithMessage(code ErrorCode, msg string) Error {
	return &codedError{code: code, message: msg}
}

func (factory) WithData(code ErrorCode, data any) Error {
	return &codedError{code: code, data: data}
}

// New returns the Factory for coded errors.
func New() Factory {
	return factory{}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e Error
		if !As(err, &e) {
			return false
		}
		if e.Code() == code {
			return true
		}
		err = e.Unwrap()
	}

	return false
}

// CodeOf returns the code of the outermost coded error in err's chain.
func CodeOf(err error) ErrorCode {
	var e Error
	if As(err, &e) {
		return e.Code()
	}

	return ErrInternal
}
