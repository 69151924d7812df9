package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(NewNotFoundError("missing")))

	wrapped := fmt.Errorf("approve: %w", NewPermissionDeniedError("no"))
	assert.Equal(t, KindPermissionDenied, KindOf(wrapped))
}

func TestNewInternalErrorKeepsCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := NewInternalError("failed to delete user", cause)

	assert.Equal(t, "failed to delete user: deadline exceeded", err.Message)
	assert.ErrorIs(t, err, cause)

	svcErr, ok := IsServiceError(err)
	assert.True(t, ok)
	assert.Equal(t, KindInternal, svcErr.Kind)
}
