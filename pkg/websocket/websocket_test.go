package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func TestServeRepliesAsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(w, r, nil, nil, func(msg []byte) (interface{}, error) {
			if string(msg) == "bye" {
				return nil, errors.New("client said bye")
			}
			return map[string]string{"echo": string(msg)}, nil
		})
	}))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "hello", reply["echo"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("bye")))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestServeRejectsOrigin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://alsito.example"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(w, r, cfg, nil, func([]byte) (interface{}, error) { return nil, nil })
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, http.Header{"Origin": {"https://alsito.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvWebSocketHeartbeatInterval, "5s")
	t.Setenv(EnvWebSocketMaxMessageSize, "2048")
	t.Setenv(EnvWebSocketAllowedOrigins, "https://a.example, https://b.example,")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultConnectionTimeout, cfg.ConnectionTimeout)
}
