package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUploadRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := services.NewLocalStorage(dir)
	require.NoError(t, err)

	router := setupTestRouter()
	router.GET("/uploads/:filename", NewUploadController(storage).GetUploadedImage)
	return router, dir
}

func TestGetUploadedImage_Success(t *testing.T) {
	router, dir := setupUploadRouter(t)

	testFilename := "test_image.png"
	require.NoError(t, os.WriteFile(filepath.Join(dir, testFilename), pngContent, 0644))

	req := httptest.NewRequest(http.MethodGet, "/uploads/"+testFilename, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=3600", w.Header().Get("Cache-Control"))
	assert.Equal(t, pngContent, w.Body.Bytes())
}

func TestGetUploadedImage_Errors(t *testing.T) {
	router, _ := setupUploadRouter(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCode   string
	}{
		{"file not found", "/uploads/nonexistent.png", http.StatusNotFound, "FILE_NOT_FOUND"},
		{"directory traversal", "/uploads/..%5Csecret.png", http.StatusBadRequest, "INVALID_FILENAME"},
		{"wrong extension", "/uploads/notes.txt", http.StatusBadRequest, "INVALID_FILE_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedCode)
		})
	}
}
