package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	RunID string  `json:"runId"`
	Spot  float64 `json:"spot"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPayload(t *testing.T, conn *websocket.Conn) payload {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var p payload
	require.NoError(t, json.Unmarshal(msg, &p))
	return p
}

func TestHub_SendsLatestOnConnect(t *testing.T) {
	h := NewHub(nil, nil, nil)
	require.NoError(t, h.Publish(payload{RunID: "r1", Spot: 24200}))

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	assert.Equal(t, payload{RunID: "r1", Spot: 24200}, readPayload(t, conn))
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	var count atomic.Int64
	h := NewHub(nil, func(n int) { count.Store(int64(n)) }, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return h.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(2), count.Load())

	require.NoError(t, h.Publish(payload{RunID: "r2", Spot: 24250}))
	assert.Equal(t, "r2", readPayload(t, a).RunID)
	assert.Equal(t, "r2", readPayload(t, b).RunID)

	// 客户端断开后计数回落
	a.Close()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), count.Load())
}

func TestHub_Stop(t *testing.T) {
	h := NewHub(nil, nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Stop())
	assert.ErrorIs(t, h.Health(), ErrHubClosed)
	assert.ErrorIs(t, h.Publish(payload{}), ErrHubClosed)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// 重复 Stop 无副作用
	assert.NoError(t, h.Stop())
}

func TestHub_PublishEncodeError(t *testing.T) {
	h := NewHub(nil, nil, nil)
	assert.Error(t, h.Publish(func() {}))
	assert.Nil(t, h.Latest())
}

func TestHub_OriginCheck(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		origin  string
		ok      bool
	}{
		{"默认同源", nil, "", true},
		{"默认拒绝跨站", nil, "https://evil.example", false},
		{"白名单命中", []string{"https://dash.example/"}, "https://dash.example", true},
		{"白名单未命中", []string{"https://dash.example"}, "https://evil.example", false},
		{"通配", []string{"*"}, "https://anywhere.example", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(NewHub(nil, nil, tc.allowed))
			defer srv.Close()

			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}
			url := "ws" + strings.TrimPrefix(srv.URL, "http")
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tc.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestHub_SameOriginAllowedByDefault(t *testing.T) {
	srv := httptest.NewServer(NewHub(nil, nil, nil))
	defer srv.Close()

	header := http.Header{"Origin": []string{srv.URL}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.NoError(t, err)
	conn.Close()
}
