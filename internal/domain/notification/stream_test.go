package notification

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

// readEvent reads lines until a blank line terminates one event.
func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()

	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestHandler_Stream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewStore()
	broadcaster := NewBroadcaster(store.Counts)
	svc := NewService(store, nil, broadcaster)
	_, err := svc.Add(t.Context(), orderInput("before subscribe"))
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc, broadcaster, time.Hour).RegisterRoutes(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/notifications/stream", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body := bufio.NewReader(resp.Body)

	first := readEvent(t, body)
	assert.Equal(t, "counts", first.name)
	assert.Contains(t, first.data, `"unread":1`)

	require.Eventually(t, func() bool { return broadcaster.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	_, err = svc.Add(t.Context(), Input{Category: CategoryIncident, Title: "Till jammed", Section: SectionIncidents})
	require.NoError(t, err)

	next := readEvent(t, body)
	assert.Equal(t, "notification", next.name)
	assert.Contains(t, next.data, "Till jammed")
	assert.Contains(t, next.data, `"unread":2`)

	cancel()
	assert.Eventually(t, func() bool { return broadcaster.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond,
		"stream handler releases its subscription when the client goes away")
}

func TestHandler_StreamNotRegisteredWithoutBroadcaster(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
