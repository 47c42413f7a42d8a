package sse

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesGroupOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(time.Minute, nil)
	r := gin.New()
	r.GET("/events/:group", func(c *gin.Context) {
		hub.Serve(c, c.Query("client"), c.Param("group"))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events/flow-1?client=a")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.Clients("flow-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("flow-2", "route", map[string]string{"screen": "ignored"})
	hub.Publish("flow-1", "route", map[string]string{"screen": "Reporting"})

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "retry:") {
			continue
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"event: route", `data: {"screen":"Reporting"}`}, lines)

	hub.CloseGroup("flow-1")
	assert.Equal(t, 0, hub.Clients("flow-1"))
}
