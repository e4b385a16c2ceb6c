package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Response is a recorded response with its decoded JSON envelope
type Response struct {
	Code int
	Body map[string]interface{}
	Raw  *httptest.ResponseRecorder
}

// Data returns the "data" object of a success envelope
func (r *Response) Data(t *testing.T) map[string]interface{} {
	t.Helper()
	require.Equal(t, true, r.Body["success"], r.Raw.Body.String())
	data, ok := r.Body["data"].(map[string]interface{})
	require.True(t, ok, "data is an object: %s", r.Raw.Body.String())
	return data
}

// List returns the "data" array of a success envelope
func (r *Response) List(t *testing.T) []interface{} {
	t.Helper()
	require.Equal(t, true, r.Body["success"], r.Raw.Body.String())
	data, ok := r.Body["data"].([]interface{})
	require.True(t, ok, "data is a list: %s", r.Raw.Body.String())
	return data
}

// ErrorCode returns error.code of a failure envelope
func (r *Response) ErrorCode(t *testing.T) string {
	t.Helper()
	require.Equal(t, false, r.Body["success"], r.Raw.Body.String())
	errData, ok := r.Body["error"].(map[string]interface{})
	require.True(t, ok, "error is an object")
	code, _ := errData["code"].(string)
	return code
}

// DoJSON sends body as JSON with an optional bearer token
func DoJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := &Response{Code: w.Code, Raw: w}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	}
	return resp
}
