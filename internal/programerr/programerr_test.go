package programerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: mint authority is X", ErrAuthorization)
	assert.True(t, errors.Is(wrapped, ErrAuthorization))
	assert.False(t, errors.Is(wrapped, ErrAccountNotFound))

	copyOf := New(CodeAuthorization, "AuthorizationFailure", "other message")
	assert.True(t, errors.Is(copyOf, ErrAuthorization))
}

func TestFromReturnsFirstInChain(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrPaymentTransferFailed, ErrInsufficientFunds)

	perr, ok := From(err)
	require.True(t, ok)
	assert.Equal(t, CodePaymentTransferFailed, perr.Code)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	_, ok = From(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "AccountNotFound (5): account not found", ErrAccountNotFound.Error())
}
