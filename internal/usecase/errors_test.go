package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"4xx", NewHTTPError(http.StatusBadRequest, "bad"), KindClient},
		{"5xx", NewHTTPError(http.StatusInternalServerError, "boom"), KindServer},
		{"status wins over message", NewHTTPError(http.StatusServiceUnavailable, "field is required"), KindServer},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindNetwork},
		{"required", errors.New("email is required"), KindValidation},
		{"invalid", errors.New("Invalid product"), KindValidation},
		{"missing", errors.New("missing address"), KindValidation},
		{"network", errors.New("network unreachable"), KindNetwork},
		{"fetch", errors.New("failed to fetch"), KindNetwork},
		{"connection", errors.New("connection reset by peer"), KindNetwork},
		{"unknown", errors.New("boom"), KindUnknown},
		{"sentinel", ErrDestinationRequired, KindValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, Classify(tc.err).Kind)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewHTTPError(500, "x")))
	assert.True(t, IsRetryable(NewHTTPError(502, "x")))
	assert.True(t, IsRetryable(NewHTTPError(503, "x")))
	assert.True(t, IsRetryable(NewHTTPError(504, "x")))
	assert.True(t, IsRetryable(errors.New("request timeout")))

	assert.False(t, IsRetryable(NewHTTPError(501, "x")))
	assert.False(t, IsRetryable(NewHTTPError(400, "x")))
	assert.False(t, IsRetryable(NewHTTPError(401, "x")))
	assert.False(t, IsRetryable(NewHTTPError(404, "x")))
	assert.False(t, IsRetryable(ErrDestinationRequired))
	assert.False(t, IsRetryable(nil))
}

func TestUserFacing_DependsOnContext(t *testing.T) {
	notFound := NewHTTPError(http.StatusNotFound, "not found")

	cart := UserFacing(notFound, ContextCart)
	assert.Contains(t, cart.Message, "product was not found")
	assert.Equal(t, ActionGoBack, cart.Action)

	shipping := UserFacing(notFound, ContextShipping)
	assert.NotEqual(t, cart.Message, shipping.Message)
}

func TestUserFacing_Actions(t *testing.T) {
	assert.Equal(t, ActionTryAgain, UserFacing(errors.New("network down"), ContextCheckout).Action)
	assert.Equal(t, ActionTryAgain, UserFacing(NewHTTPError(503, "x"), ContextProducts).Action)
	assert.Equal(t, ActionCheckInformation, UserFacing(NewHTTPError(422, "x"), ContextCheckout).Action)
	assert.Equal(t, ActionCheckInformation, UserFacing(ErrDestinationRequired, ContextCart).Action)
	assert.Equal(t, ActionGoBack, UserFacing(NewHTTPError(401, "x"), ContextCart).Action)
	assert.Equal(t, UserFacingError{}, UserFacing(nil, ContextCart))
}

func TestErrorInfo(t *testing.T) {
	info := ErrorInfo(NewHTTPError(http.StatusServiceUnavailable, "down"), ContextCart)
	assert.Equal(t, string(KindServer), info.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, info.Status)
	assert.Equal(t, ActionTryAgain, info.Action)

	assert.Nil(t, ErrorInfo(nil, ContextCart))
}
