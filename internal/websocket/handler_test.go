package websocket

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

	"qajalicense/internal/config"
	"qajalicense/internal/license"
)

func TestHandlerStreamsEvents(t *testing.T) {
	hub := newTestHub(t)
	srv := httptest.NewServer(Handler(hub, config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var greeting Envelope
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, TypeConnection, greeting.Type)

	hub.Publish(context.Background(), license.Event{Type: license.EventDeactivated, Key: "AB12-CD34-EF56-GH78"})

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "license.deactivated", env.Type)
	assert.Equal(t, "AB12-CD34-EF56-GH78", env.Key)
}

func TestHandlerRejectsForeignOrigin(t *testing.T) {
	hub := newTestHub(t)
	srv := httptest.NewServer(Handler(hub, config.WebSocketConfig{}, []string{"https://admin.example.com"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no list allows all", origin: "https://x.com", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://x.com", want: true},
		{name: "listed", allowed: []string{"https://admin.example.com/"}, origin: "https://admin.example.com", want: true},
		{name: "unlisted", allowed: []string{"https://admin.example.com"}, origin: "https://x.com", want: false},
		{name: "no origin header", allowed: []string{"https://admin.example.com"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(r))
		})
	}
}
