package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimitedRouter(t *testing.T, perMinute int, trustedProxies []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(trustedProxies))
	router.Use(RateLimit(perMinute, zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func ping(router *gin.Engine, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_PerIP(t *testing.T) {
	router := newLimitedRouter(t, 3, nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, ping(router, "203.0.113.7:4000", ""))
	}
	assert.Equal(t, http.StatusTooManyRequests, ping(router, "203.0.113.7:4001", ""))
	assert.Equal(t, http.StatusOK, ping(router, "198.51.100.2:4000", ""), "other clients keep their own budget")
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	router := newLimitedRouter(t, 2, nil)

	throttled := 0
	for i := 0; i < 50; i++ {
		if ping(router, "10.0.0.1:5000", fmt.Sprintf("1.2.3.%d", i)) == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 48, throttled, "rotating X-Forwarded-For must not reset the budget")
}

func TestRateLimit_HonoursForwardedForFromTrustedProxy(t *testing.T) {
	router := newLimitedRouter(t, 2, []string{"10.0.0.0/8"})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ping(router, "10.0.0.1:5000", "203.0.113.7"))
	}
	assert.Equal(t, http.StatusTooManyRequests, ping(router, "10.0.0.1:5000", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, ping(router, "10.0.0.1:5000", "198.51.100.2"), "each forwarded client has its own budget")
}

func TestRateLimit_Disabled(t *testing.T) {
	router := newLimitedRouter(t, 0, nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, ping(router, "203.0.113.7:4000", ""))
	}
}

func TestRateLimiterStore_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newRateLimiterStore(5)
	store.now = func() time.Time { return now }
	store.lastSweep = now

	for i := 0; i < 100; i++ {
		store.getLimiter(fmt.Sprintf("192.0.2.%d", i))
	}
	assert.Equal(t, 100, store.size())

	now = now.Add(limiterIdleTTL / 2)
	store.getLimiter("192.0.2.1")
	assert.Equal(t, 100, store.size(), "no sweep before the idle TTL")

	now = now.Add(limiterIdleTTL / 2)
	store.getLimiter("198.51.100.9")
	assert.Equal(t, 2, store.size(), "only the recently seen client and the new one survive")
}
