package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine("", 0)
	assert.Equal(t, "spa", e.language)
	assert.Equal(t, DefaultRecognizeTimeout, e.timeout)
}

func TestEngine_RecognizeAfterShutdownFailsFast(t *testing.T) {
	e := NewEngine("spa", time.Second)
	require.NoError(t, e.Shutdown())

	_, err := e.Recognize(context.Background(), "/tmp/whatever.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineClosed)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "recognize", engineErr.Op)
}

func TestEngine_ShutdownIdempotent(t *testing.T) {
	e := NewEngine("spa", time.Second)
	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
}

func TestEngineError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &EngineError{Op: "recognize", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "recognize")
	assert.Contains(t, err.Error(), "boom")
}

func TestIsTimeout(t *testing.T) {
	timeoutErr := &EngineError{Op: "recognize", Err: ErrRecognitionTimeout}
	assert.True(t, IsTimeout(timeoutErr))
	assert.False(t, IsTimeout(&EngineError{Op: "recognize", Err: ErrEngineClosed}))
	assert.False(t, IsTimeout(nil))
}
