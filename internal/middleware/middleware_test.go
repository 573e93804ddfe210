package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(common.RequestIDKey)})
	})
	return r
}

func doGet(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"key-a", "key-b"}))

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"first key", map[string]string{"X-API-Key": "key-a"}, http.StatusOK},
		{"second key", map[string]string{"X-API-Key": "key-b"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doGet(r, tt.header).Code)
		})
	}
}

func TestAuth_NoKeysRejectsEverything(t *testing.T) {
	r := newEngine(Auth(nil))
	assert.Equal(t, http.StatusUnauthorized, doGet(r, map[string]string{"X-API-Key": "anything"}).Code)
}

func TestAuth_BlankKeysAreIgnored(t *testing.T) {
	r := newEngine(Auth([]string{"", "  ", " key-a "}))

	assert.Equal(t, http.StatusUnauthorized, doGet(r, map[string]string{"X-API-Key": " "}).Code)
	assert.Equal(t, http.StatusOK, doGet(r, map[string]string{"X-API-Key": "key-a"}).Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	t.Run("generated", func(t *testing.T) {
		w := doGet(r, nil)
		id := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, id)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, id, body["request_id"])
	})

	t.Run("propagated", func(t *testing.T) {
		w := doGet(r, map[string]string{"X-Request-ID": "req-42"})
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})

	t.Run("oversized replaced", func(t *testing.T) {
		long := strings.Repeat("a", maxRequestIDLen+1)
		w := doGet(r, map[string]string{"X-Request-ID": long})
		id := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, long, id)
		assert.NoError(t, uuid.Validate(id))
	})

	t.Run("unprintable replaced", func(t *testing.T) {
		w := doGet(r, map[string]string{"X-Request-ID": "req 42"})
		assert.NoError(t, uuid.Validate(w.Header().Get("X-Request-ID")))
	})
}

func TestRequestID_InErrorEnvelope(t *testing.T) {
	r := newEngine(RequestID(), Auth([]string{"k"}))

	w := doGet(r, map[string]string{"X-Request-ID": "req-7"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-7", resp.Error.RequestID)
}

func TestRateLimiter(t *testing.T) {
	r := newEngine(NewRateLimiter(0.001, 2).Middleware())

	assert.Equal(t, http.StatusOK, doGet(r, nil).Code)
	assert.Equal(t, http.StatusOK, doGet(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, nil).Code)
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	assert.True(t, rl.bucket("10.0.0.1").Allow())
	assert.False(t, rl.bucket("10.0.0.1").Allow())
	assert.True(t, rl.bucket("10.0.0.2").Allow())
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_IdleBucketsExpire(t *testing.T) {
	rl := newRateLimiter(0.001, 1, 50*time.Millisecond)

	require.True(t, rl.bucket("10.0.0.1").Allow())
	require.False(t, rl.bucket("10.0.0.1").Allow())

	time.Sleep(80 * time.Millisecond)

	assert.True(t, rl.bucket("10.0.0.1").Allow(), "expired client starts with a fresh bucket")
}

func TestRateLimiter_SetsRetryAfter(t *testing.T) {
	r := newEngine(NewRateLimiter(0.001, 1).Middleware())

	require.Equal(t, http.StatusOK, doGet(r, nil).Code)
	w := doGet(r, nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := newEngine(NewRateLimiter(0, 0).Middleware())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, nil).Code)
	}
}

func TestCORS_AllowAll(t *testing.T) {
	r := newEngine(CORS([]string{"*"}, []string{"GET"}, []string{"X-API-Key"}))

	w := doGet(r, map[string]string{"Origin": "http://dashboard.test"})

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Restricted(t *testing.T) {
	r := newEngine(CORS([]string{"http://dashboard.test"}, []string{"GET"}, []string{"X-API-Key"}))

	allowed := doGet(r, map[string]string{"Origin": "http://dashboard.test"})
	assert.Equal(t, "http://dashboard.test", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := doGet(r, map[string]string{"Origin": "http://evil.test"})
	assert.Equal(t, http.StatusForbidden, denied.Code)
}
