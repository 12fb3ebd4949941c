package errorbank_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/comanda-labs/comanda/pkg/errorbank"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *errorbank.AppError
		http int
		grpc codes.Code
	}{
		{errorbank.BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{errorbank.Conflict("conflict"), http.StatusConflict, codes.AlreadyExists},
		{errorbank.NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{errorbank.Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{errorbank.InvalidTransition("pending", "served"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{errorbank.InsufficientPayment(9.99, 10.00), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{errorbank.TransactionFailed("tx failed"), http.StatusServiceUnavailable, codes.Aborted},
		{errorbank.Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.http, tc.err.StatusCode(), tc.err.Message())
		assert.Equal(t, tc.grpc, tc.err.GRPCCode(), tc.err.Message())
	}
}

func TestInvalidTransitionDetails(t *testing.T) {
	err := errorbank.InvalidTransition("confirmed", "served")

	assert.Equal(t, errorbank.KindInvalidTransition, err.Kind())
	assert.Equal(t, "cannot transition from confirmed to served", err.Message())
	assert.Equal(t, "confirmed", err.Details()["current"])
	assert.Equal(t, "served", err.Details()["requested"])
}

func TestInsufficientPaymentDetails(t *testing.T) {
	err := errorbank.InsufficientPayment(9.99, 10.00)

	assert.Equal(t, "payments of 9.99 do not cover order total 10.00", err.Message())
	assert.Equal(t, 9.99, err.Details()["paid"])
	assert.Equal(t, 10.00, err.Details()["required"])
}

func TestWrappingAndFrom(t *testing.T) {
	cause := fmt.Errorf("driver: bad connection")
	err := errorbank.TransactionFailed("order transaction failed", errorbank.WithCause(cause))

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "driver: bad connection")

	wrapped := fmt.Errorf("outer: %w", err)
	appErr := errorbank.From(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, errorbank.KindTransactionFailed, appErr.Kind())

	plain := errorbank.From(errors.New("unexpected"))
	assert.Equal(t, errorbank.KindInternal, plain.Kind())

	assert.Nil(t, errorbank.From(nil))
}

func TestDetailsMerging(t *testing.T) {
	err := errorbank.New(errorbank.KindConflict, "",
		errorbank.WithDetail("order_id", int64(7)),
		errorbank.WithDetails(map[string]any{"status": "paid"}),
	)

	assert.Equal(t, "conflict", err.Message(), "empty message falls back to the kind")
	assert.Equal(t, int64(7), err.Details()["order_id"])
	assert.Equal(t, "paid", err.Details()["status"])
}
