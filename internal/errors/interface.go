package errors

// ErrorCode identifies a failure class. Packages declare their own codes
// in an errors.go file and register a default message for them.
type ErrorCode string

// Error is a coded error. The code survives wrapping, so callers test
// for it with HasCode instead of comparing messages.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	Unwrap() error
}

// Factory builds coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
