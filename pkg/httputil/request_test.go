package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose,omitempty"`
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    sendRequest
	}{
		{name: "valid", body: `{"phone":"9876543210","purpose":"login"}`, want: sendRequest{Phone: "9876543210", Purpose: "login"}},
		{name: "invalid JSON", body: `{"phone":`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			var got sendRequest
			err := ParseJSON(req, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSON_EmptyBodySentinel(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var got sendRequest
	assert.ErrorIs(t, ParseJSON(req, &got), ErrEmptyBody)
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))

	var got sendRequest
	assert.False(t, ParseJSONOrError(w, req, &got))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
}

func TestParseJSONOrError_TooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	body := `{"phone":"` + strings.Repeat("9", 100) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Body = http.MaxBytesReader(w, req.Body, 16)

	var got sendRequest
	assert.False(t, ParseJSONOrError(w, req, &got))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestValidateAll(t *testing.T) {
	w := httptest.NewRecorder()
	calls := 0
	ok := ValidateAll(w,
		func() (bool, string) { calls++; return true, "" },
		func() (bool, string) { calls++; return false, "requestId is required" },
		func() (bool, string) { calls++; return false, "never reached" },
	)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
	assert.Contains(t, w.Body.String(), "requestId is required")
}
