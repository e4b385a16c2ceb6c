package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/middleware"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/services"
	"github.com/homefix/homefix-api/store"
	"github.com/stretchr/testify/require"
)

const (
	testUserHeader = "X-Test-User-ID"
	testRoleHeader = "X-Test-Role"
)

var pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

var testTokens = services.TokenConfig{
	Secret:   []byte("controller-test-secret"),
	Issuer:   "homefix-api",
	Audience: "homefix-web",
	Expiry:   time.Hour,
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware stands in for the JWT middleware: the identity comes
// from test headers, and requests without them stay anonymous
func mockAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(testUserHeader); id != "" {
			middleware.SetActor(c, policy.Actor{ID: id, Role: models.Role(c.GetHeader(testRoleHeader))})
		}
		c.Next()
	}
}

type fixture struct {
	store   *store.MemoryStore
	storage *services.MockStorage
	router  *gin.Engine

	client policy.Actor
	other  policy.Actor
	tech   policy.Actor
	admin  policy.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.NewMemoryStore(),
		storage: services.NewMockStorage(),
		router:  setupTestRouter(),
	}
	f.client = f.seedUser(t, "alice", models.RoleClient)
	f.other = f.seedUser(t, "bob", models.RoleClient)
	f.tech = f.seedUser(t, "tom", models.RoleTechnician)
	f.admin = f.seedUser(t, "root", models.RoleAdmin)

	requestService := services.NewRequestService(f.store, services.NewImageService(f.storage), nil)
	userService := services.NewUserService(f.store, nil)
	requests := NewRequestController(requestService)
	profiles := NewProfileController(userService)
	technicians := NewTechnicianController(services.NewTechnicianService(f.store, nil))
	admin := NewAdminController(requestService, userService)
	auth := NewAuthController(services.NewAuthService(f.store, testTokens, nil))

	f.router.POST("/register", auth.Register)
	f.router.POST("/login", auth.Login)

	api := f.router.Group("/", mockAuthMiddleware())
	api.GET("/profile", profiles.GetProfile)
	api.PUT("/profile", profiles.UpdateProfile)

	api.GET("/technicians", technicians.ListTechnicians)
	api.GET("/technicians/recommendations", technicians.Recommendations)
	api.GET("/technicians/:id", technicians.GetTechnician)
	api.DELETE("/technicians/:id", technicians.DeleteTechnician)

	api.POST("/requests", requests.CreateRequest)
	api.GET("/requests", requests.ListRequests)
	api.GET("/requests/:id", requests.GetRequest)
	api.PATCH("/requests/:id", requests.UpdateStatus)
	api.POST("/requests/:id/messages", requests.SendMessage)
	api.GET("/requests/:id/messages", requests.ListMessages)

	adminGroup := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	adminGroup.GET("/requests", requests.ListRequests)
	adminGroup.DELETE("/requests/:id", admin.DeleteRequest)
	adminGroup.PUT("/requests/:id/technician", admin.AssignTechnician)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.DELETE("/users/:id", admin.DeleteUser)
	adminGroup.GET("/stats", admin.Stats)
	return f
}

func (f *fixture) seedUser(t *testing.T, name string, role models.Role) policy.Actor {
	t.Helper()
	ctx := context.Background()
	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		Location:     "Springfield",
	}
	require.NoError(t, f.store.CreateUser(ctx, user))
	if role == models.RoleTechnician {
		profile := models.NewTechnicianProfile(user, "Plumbing")
		require.NoError(t, f.store.CreateTechnician(ctx, &profile))
	}
	return policy.Actor{ID: user.ID, Role: role}
}

// do sends a JSON request as actor (anonymous when actor is zero) and decodes the envelope
func (f *fixture) do(t *testing.T, method, path string, actor policy.Actor, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
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
	return f.serve(t, req, actor)
}

func (f *fixture) serve(t *testing.T, req *http.Request, actor policy.Actor) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	if actor.ID != "" {
		req.Header.Set(testUserHeader, actor.ID)
		req.Header.Set(testRoleHeader, string(actor.Role))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w, response
}

// createRequest books a service for actor and returns the new request id
func (f *fixture) createRequest(t *testing.T, actor policy.Actor, technicianID string) string {
	t.Helper()
	body := map[string]interface{}{
		"serviceType": "Plumbing",
		"description": "Kitchen sink is leaking",
	}
	if technicianID != "" {
		body["technicianId"] = technicianID
	}
	w, response := f.do(t, http.MethodPost, "/requests", actor, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataOf(t, response)["id"].(string)
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/requests", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func dataOf(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.True(t, response["success"].(bool))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data is an object")
	return data
}

func listOf(t *testing.T, response map[string]interface{}) []interface{} {
	t.Helper()
	require.True(t, response["success"].(bool))
	data, ok := response["data"].([]interface{})
	require.True(t, ok, "data is a list")
	return data
}

func errorOf(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.False(t, response["success"].(bool))
	return response["error"].(map[string]interface{})
}
