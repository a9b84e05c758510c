package api

import (
	"errors"
	"fmt"
	"testing"

	"threadview/sendgate"
	"threadview/utils"
)

func TestMapSendError_StatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{sendgate.ErrEmptyBody, 400},
		{sendgate.ErrNoRecipient, 400},
		{sendgate.ErrNotAuthenticated, 401},
		{sendgate.ErrSendInFlight, 409},
		{sendgate.ErrVerificationTimeout, 408},
		{sendgate.ErrRetryDifficulty, 429},
		{fmt.Errorf("%w: boom", sendgate.ErrUploadFailed), 502},
		{fmt.Errorf("%w: status=error", sendgate.ErrSubmitRejected), 502},
		{errors.New("anything else"), 502},
	}
	for _, tc := range cases {
		appErr, ok := mapSendError(tc.err).(*utils.AppError)
		if !ok {
			t.Fatalf("%v: not an AppError", tc.err)
		}
		if appErr.Code != tc.code {
			t.Errorf("%v: code %d, want %d", tc.err, appErr.Code, tc.code)
		}
	}
}

func TestMapSendError_RetryFlag(t *testing.T) {
	appErr := mapSendError(sendgate.ErrRetryDifficulty).(*utils.AppError)
	if retry, ok := appErr.Context["retry"].(bool); !ok || !retry {
		t.Error("difficulty rejection should carry the retry flag")
	}
}
