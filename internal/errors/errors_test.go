package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed data",
			err:        NewMalformedDataError(NewFromStrError("x", "f64"), 5),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MALFORMED_DATA",
		},
		{
			name:       "from str",
			err:        NewFromStrError("2021-01-01", "date"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "FROM_STR",
		},
		{
			name:       "config",
			err:        NewConfigError("range.range_jmj"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "CONFIG_ERROR",
		},
		{
			name:       "validation",
			err:        NewAppValidationError("no files"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "io",
			err:        NewIOError("read", nil),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "IO_ERROR",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromAppError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestFromAppError_MalformedDataCarriesLine(t *testing.T) {
	apiErr := FromAppError(NewMalformedDataError(errors.New("bad row"), 7))

	details, ok := apiErr.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 7, details["line"])
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrValidation("encoding", "unsupported"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.ErrorCode)
}
