package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yvetteluxe63/yvetteluxe/common/errors"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.Use(handlers...)
	return r
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := get(r, "/", nil)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	t.Run("Success - listed origin", func(t *testing.T) {
		r := newRouter(CORS([]string{"https://shop.example.com/"}))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", SessionHeader)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Failure - unknown origin", func(t *testing.T) {
		r := newRouter(CORS([]string{"https://shop.example.com"}))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := get(r, "/", http.Header{"Origin": []string{"https://evil.example.com"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Success - wildcard", func(t *testing.T) {
		r := newRouter(CORS([]string{"*"}))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := get(r, "/", http.Header{"Origin": []string{"https://anything.example.com"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2, time.Minute)
	r := newRouter(RateLimit(rl))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	rec := get(r, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")

	assert.Same(t, rl.GetLimiter("192.0.2.1"), rl.GetLimiter("192.0.2.1"))
	assert.NotSame(t, rl.GetLimiter("192.0.2.1"), rl.GetLimiter("192.0.2.2"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1, 20*time.Millisecond)
	rl.GetLimiter("192.0.2.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Cleanup(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.ips) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func newRegistry(t *testing.T) *services.SessionRegistry {
	t.Helper()
	reg := services.NewSessionRegistry(database.NewMemoryKV(), nil, nil, "admin123", zap.NewNop())
	t.Cleanup(reg.Close)
	return reg
}

func TestSession(t *testing.T) {
	reg := newRegistry(t)
	r := newRouter(Session(reg))
	r.GET("/", func(c *gin.Context) {
		sess, ok := GetSession(c)
		require.True(t, ok)
		c.String(http.StatusOK, sess.ID)
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"Failure - missing header", "", http.StatusBadRequest},
		{"Failure - not a uuid", "cart-123", http.StatusBadRequest},
		{"Success", "3b241101-e2bb-4255-8caf-4136c566a962", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set(SessionHeader, tt.header)
			}
			rec := get(r, "/", h)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.header, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	reg := newRegistry(t)
	r := newRouter(Session(reg), RequireAdmin())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	sid := uuid.NewString()
	h := http.Header{SessionHeader: []string{sid}}
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", h).Code)

	sess, err := reg.Get(context.Background(), sid)
	require.NoError(t, err)
	require.NoError(t, sess.Admin.Login(context.Background(), "admin123"))
	assert.Equal(t, http.StatusOK, get(r, "/", h).Code)
}

func TestRequireCustomer(t *testing.T) {
	reg := newRegistry(t)
	r := newRouter(Session(reg), RequireCustomer())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := get(r, "/", http.Header{SessionHeader: []string{uuid.NewString()}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	reg := newRegistry(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)), apperrors.ErrorMiddleware(), Session(reg))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	sid := uuid.NewString()
	get(r, "/ok?x=1", http.Header{SessionHeader: []string{sid}})
	get(r, "/ok", nil)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", first["path"])
	assert.Equal(t, "x=1", first["query"])
	assert.Equal(t, sid, first["session_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.NotContains(t, entries[1].ContextMap(), "session_id")
}

func TestMetrics_Disabled(t *testing.T) {
	r := newRouter(Metrics(nil, "storefront"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
}

func TestStatusCodeToRange(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToRange(http.StatusCreated))
	assert.Equal(t, "3xx", statusCodeToRange(http.StatusFound))
	assert.Equal(t, "4xx", statusCodeToRange(http.StatusConflict))
	assert.Equal(t, "5xx", statusCodeToRange(http.StatusBadGateway))
	assert.Equal(t, "unknown", statusCodeToRange(100))
}
