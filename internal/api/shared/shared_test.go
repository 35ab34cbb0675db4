package shared

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTarget struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		errText string
	}{
		{name: "valid json", body: `{"name": "test", "age": 30}`},
		{name: "unknown field", body: `{"name": "test", "extra": 1}`, wantErr: ErrUnknownField},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "invalid json", body: `{"name": "test",}`, errText: "invalid character"},
		{name: "trailing value", body: `{"name": "a"} {"name": "b"}`, errText: "single JSON value"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tc.body))
			var target decodeTarget
			err := DecodeJSON(req, &target)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, decodeTarget{Name: "test", Age: 30}, target)
			}
		})
	}
}

type validatedRequest struct {
	Name string `validate:"required"`
}

type selfValidating struct{}

func (selfValidating) Validate() error { return errors.New("custom") }

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(validatedRequest{Name: "x"}))
	assert.Error(t, ValidateRequest(validatedRequest{}))
	assert.EqualError(t, ValidateRequest(selfValidating{}), "custom")
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	generated := GetTraceID(SetTraceID(ctx))
	assert.Len(t, generated, 32)
	_, err := hex.DecodeString(generated)
	assert.NoError(t, err)

	assert.Equal(t, "caller-trace-1234", GetTraceID(WithTraceID(ctx, "caller-trace-1234")))
	assert.Len(t, GetTraceID(WithTraceID(ctx, "bad id with spaces")), 32)
	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/todos/1", nil)
	req = req.WithContext(WithTraceID(req.Context(), "trace-abcdef12"))
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, http.StatusNotFound, "Todo not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Todo not found", body["error"])
	assert.Equal(t, "trace-abcdef12", body["trace_id"])
}

func TestRespondWithErrorAndLog_HidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	rec := httptest.NewRecorder()

	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError, "An unexpected error occurred",
		errors.New("dial postgres://app:hunter22@db/todos failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter22")
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
}

func TestRespondWithBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	RespondWithBody(rec, req, http.StatusOK, "text/calendar; charset=utf-8", "BEGIN:VCALENDAR\r\n")

	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "BEGIN:VCALENDAR\r\n", rec.Body.String())
}
