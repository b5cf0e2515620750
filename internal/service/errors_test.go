package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weiawesome/vlog-interaction-service/internal/repository"
)

func TestErrorKinds(t *testing.T) {
	err := newError(ErrAlreadyExists, "already following")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "already following", err.Error())

	assert.NotErrorIs(t, newError(ErrInvalidOperation, "x"), ErrAlreadyExists)
}

func TestTranslate(t *testing.T) {
	driverErr := errors.New(`pq: relation "reactions" does not exist`)

	tests := []struct {
		name      string
		in        error
		kind      error
		retryable bool
	}{
		{"typed passes through", notFound("content", "c1"), ErrNotFound, false},
		{"conflict", fmt.Errorf("wrap: %w", repository.ErrConflict), ErrTransactionAborted, true},
		{"deadline", context.DeadlineExceeded, ErrTransactionAborted, true},
		{"driver", driverErr, ErrTransactionAborted, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := translate(tt.in)
			assert.ErrorIs(t, out, tt.kind)
			assert.Equal(t, tt.retryable, IsRetryable(out))
			assert.NotContains(t, out.Error(), "pq:")
		})
	}

	assert.NoError(t, translate(nil))
}
