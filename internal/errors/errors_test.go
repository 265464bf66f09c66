package errors_test

import (
	"fmt"
	"io"
	"testing"

	"codeberg.org/mutker/labctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidConfig)
	assert.Equal(t, "Invalid configuration", err.Error())

	err = errFactory.Wrap(errors.ErrInitApp, io.EOF)
	assert.Equal(t, "Failed to initialize application: EOF", err.Error())
	assert.ErrorIs(t, err, io.EOF)

	err = errFactory.WithData(errors.ErrInvalidArgument, "bad value")
	assert.Equal(t, "Invalid argument provided: bad value", err.Error())

	err = errFactory.WithMessage(errors.ErrorCode("custom_code"), "custom")
	assert.Equal(t, "custom", err.Error())
	assert.Equal(t, errors.ErrorCode("custom_code"), err.Code())
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	err := errors.New().New(errors.ErrorCode("never_registered"))
	assert.Equal(t, "never_registered", err.Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrInvalidLogLevel)
	outer := errFactory.Wrap(errors.ErrInvalidConfig, inner)
	wrapped := fmt.Errorf("loading: %w", outer)

	assert.True(t, errors.HasCode(wrapped, errors.ErrInvalidConfig))
	assert.True(t, errors.HasCode(wrapped, errors.ErrInvalidLogLevel))
	assert.False(t, errors.HasCode(wrapped, errors.ErrExport))
	assert.False(t, errors.HasCode(io.EOF, errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))

	assert.Equal(t, errors.ErrInvalidConfig, errors.CodeOf(wrapped))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(io.EOF))
}

func TestWithReturnsModifiedCopy(t *testing.T) {
	base := errors.New().Wrap(errors.ErrExport, io.ErrShortWrite)

	withMsg := base.WithMessage("disk full")
	withData := base.WithData("/tmp/out.csv")

	assert.Equal(t, "Failed to export session data: short write", base.Error())
	assert.Equal(t, "disk full: short write", withMsg.Error())
	assert.Equal(t, "Failed to export session data: /tmp/out.csv", withData.Error())

	for _, err := range []errors.Error{withMsg, withData} {
		assert.Equal(t, errors.ErrExport, err.Code())
		assert.ErrorIs(t, err, io.ErrShortWrite)
	}
}
