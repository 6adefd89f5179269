package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/gateway"
)

type chanSubscriber struct {
	events     chan gateway.Event
	subscribed chan struct{}
	collection string
	id         string
}

func (s *chanSubscriber) Subscribe(_ context.Context, collection, id string) (<-chan gateway.Event, error) {
	s.collection, s.id = collection, id
	close(s.subscribed)
	return s.events, nil
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestWsHandler_ForwardsDocumentEvents(t *testing.T) {
	sub := &chanSubscriber{events: make(chan gateway.Event, 1), subscribed: make(chan struct{})}
	s := newTestServer(t, func(d *Deps) { d.Subscriber = sub })
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/ws?resume_id=r1"), http.Header{testOwnerHeader: {testOwner}})
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-sub.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not started")
	}
	assert.Equal(t, "users/u1/resumes", sub.collection)
	assert.Equal(t, "r1", sub.id)

	sub.events <- gateway.Event{Type: gateway.EventUpdated, Collection: sub.collection, ID: "r1"}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsDocumentMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "document_changed", msg.Type)
	assert.Equal(t, gateway.EventUpdated, msg.Event.Type)
	assert.Equal(t, "r1", msg.Event.ID)
}

func TestWsHandler_RequiresOwner(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/ws"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWsHandler_RejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.AllowedOrigins = []string{"https://app.example"} })
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	header := http.Header{testOwnerHeader: {testOwner}, "Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/ws"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
