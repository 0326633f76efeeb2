package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamAPI, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithBody(`{"message":"bad gateway"}`).
		WithTool("listPets")

	assert.Equal(t, ErrUpstreamAPI, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, root))
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "root")
	assert.Equal(t, "listPets", err.Tool)
}

func TestError_WrappedChain(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrAuth, "missing secret")
	wrapped := fmt.Errorf("render: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, IsErrorCode(wrapped, ErrAuth))
	assert.False(t, IsErrorCode(wrapped, ErrNetwork))
	assert.False(t, IsRetryable(wrapped))
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, WrapError(nil, ErrInternalError, "x"))

	plain := errors.New("boom")
	wrapped := WrapError(plain, ErrInternalError, "unexpected failure")
	assert.Equal(t, ErrInternalError, wrapped.Code)
	assert.ErrorIs(t, wrapped, plain)

	typed := NewError(ErrNetwork, "connection refused")
	assert.Same(t, typed, WrapError(fmt.Errorf("send: %w", typed), ErrInternalError, "x"))
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := Errorf(ErrToolCompilation, "duplicate tool name %q", "getPet")
	assert.Equal(t, `[TOOL_COMPILATION] duplicate tool name "getPet"`, err.Error())
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
