package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrNotFound", err: model.ErrNotFound, expected: "not found"},
		{name: "ErrInvalidConfig", err: model.ErrInvalidConfig, expected: "invalid configuration"},
		{name: "ErrEmbeddingFailed", err: model.ErrEmbeddingFailed, expected: "embedding generation failed"},
		{name: "ErrDuplicateSuggestion", err: model.ErrDuplicateSuggestion, expected: "duplicate suggestion"},
		{name: "ErrInvalidTransition", err: model.ErrInvalidTransition, expected: "invalid status transition"},
		{name: "ErrLLMOperation", err: model.ErrLLMOperation, expected: "llm operation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestEngineError(t *testing.T) {
	cause := errors.New("disk full")
	err := model.NewEngineError("Accept", cause)

	require.Error(t, err)
	assert.Equal(t, "blueberry: Accept: disk full", err.Error())

	var target *model.EngineError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "Accept", target.Op)
	assert.Equal(t, cause, target.Err)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestNewEngineError_Nil(t *testing.T) {
	assert.NoError(t, model.NewEngineError("Accept", nil))
	assert.NoError(t, model.NewStorageError("Get", nil))
}

func TestNewStorageError(t *testing.T) {
	err := model.NewStorageError("GetSuggestion", model.ErrNotFound)

	assert.ErrorIs(t, err, model.ErrStorageOperation)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NotErrorIs(t, err, model.ErrInvalidInput)
}
