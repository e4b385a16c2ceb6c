package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/store"
	"github.com/homefix/homefix-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer serves the full router over a real listener
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(t)

	cfg := testutil.NewTestConfig(t)
	app, err := newApplication(context.Background(), cfg, testLogger(), store.NewMemoryStore())
	require.NoError(t, err)
	router, err := setupRouter(app)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, client *http.Client, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAcceptance_HealthOverHTTP(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAcceptance_RegisterThenProfile(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	resp, body := postJSON(t, client, server.URL+"/api/v1/register", map[string]string{
		"name":     "frank",
		"email":    "Frank@HomeFix.test",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = postJSON(t, client, server.URL+"/api/v1/login", map[string]string{
		"email":    "frank@homefix.test",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token := body["data"].(map[string]interface{})["token"].(string)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/profile", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	profileResp, err := client.Do(req)
	require.NoError(t, err)
	defer profileResp.Body.Close()
	assert.Equal(t, http.StatusOK, profileResp.StatusCode)

	resp, body = postJSON(t, client, server.URL+"/api/v1/login", map[string]string{
		"email":    "frank@homefix.test",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestAcceptance_CORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/requests", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAcceptance_MissingUpload(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/api/v1/uploads/" + "0b7f3d9e-4c1a-4d3b-9a3e-5f6a7b8c9d0e.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
