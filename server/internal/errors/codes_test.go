package errors

import (
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeOCRFailed, http.StatusBadRequest},
		{ErrCodeOCRUnavailable, http.StatusInternalServerError},
		{ErrCodeUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("NOPE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAPIError(t *testing.T) {
	cause := pkgerrors.New("tesseract exited 1")
	err := OCRFailed(cause)

	assert.Equal(t, "[OCR_FAILED] tesseract exited 1: tesseract exited 1", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Body{Error: "tesseract exited 1", Code: ErrCodeOCRFailed}, err.Body())

	plain := InvalidArgument("No text provided")
	assert.Equal(t, "[INVALID_ARGUMENT] No text provided", plain.Error())
	assert.Nil(t, plain.Unwrap())

	internal := Internal(cause)
	assert.Equal(t, "internal server error", internal.Body().Error)
}
