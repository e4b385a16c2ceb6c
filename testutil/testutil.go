// Package testutil holds helpers shared by the HTTP-level test suites.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/homefix/homefix-api/config"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test for the duration of the test
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()
	t.Setenv("GO_ENV", "test")
	RequireTestEnvironment(t)
}

// NewTestConfig returns a configuration backed by the in-memory store with
// attachments written to a temporary directory
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               "0",
		GoEnv:              "test",
		DatabaseDriver:     config.DriverMemory,
		MongoDatabase:      "homefix_test",
		JWTSecret:          "integration-test-secret-0123456789",
		JWTIssuer:          "homefix-api",
		JWTAudience:        "homefix-web",
		JWTExpiry:          time.Hour,
		AdminEmail:         "admin@homefix.test",
		AdminPassword:      "admin-password",
		UploadDir:          t.TempDir(),
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		RateLimitPerMinute: 0,
		LogLevel:           "error",
	}
}
