package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesMessageTable(t *testing.T) {
	err := New(CodeBidTooLow)

	assert.Equal(t, "Bid must exceed the current highest bid", err.Message)
	assert.Equal(t, http.StatusConflict, err.StatusCode)
}

func TestIs_ComparesByCode(t *testing.T) {
	err := fmt.Errorf("place bid: %w", New(CodeAuctionEnded, WithContext("auction 0x01")))

	assert.True(t, errors.Is(err, New(CodeAuctionEnded)))
	assert.False(t, errors.Is(err, New(CodeBidTooLow)))
	assert.True(t, HasCode(err, CodeAuctionEnded))
}

func TestWrap_KeepsExistingAppError(t *testing.T) {
	inner := New(CodeTransferFailed)
	wrapped := Wrap(inner, CodeInternalError, "withdraw")

	require.Same(t, inner, wrapped)
	assert.Equal(t, "withdraw", wrapped.Context)
	assert.Equal(t, CodeTransferFailed, GetCode(wrapped))
}

func TestWrap_PlainError(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, CodeStoreError, "commit")

	assert.Equal(t, CodeStoreError, wrapped.Code)
	assert.ErrorIs(t, wrapped, cause)
	assert.Nil(t, Wrap(nil, CodeStoreError, ""))
}

func TestDefaultStatusCodes(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotSeller, http.StatusForbidden},
		{CodeNotOwner, http.StatusForbidden},
		{CodeAuctionNotFound, http.StatusNotFound},
		{CodeInvalidPriceFeed, http.StatusBadRequest},
		{CodeStalePrice, http.StatusServiceUnavailable},
		{CodeTransferFailed, http.StatusUnprocessableEntity},
		{CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, getDefaultStatusCode(tt.code))
		})
	}
}

func TestGetCode_NonAppError(t *testing.T) {
	assert.Equal(t, CodeUnknownError, GetCode(errors.New("boom")))
}
