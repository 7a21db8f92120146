package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"go.uber.org/zap"
)

func feedServer(t *testing.T, feed *OrderFeed) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", feed.Serve)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestOrderFeed_Broadcast(t *testing.T) {
	feed := NewOrderFeed([]string{"https://admin.example.com"}, zap.NewNop())
	url := feedServer(t, feed)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Clients() == 1 }, time.Second, 10*time.Millisecond)

	feed.Broadcast(models.Order{ID: "o-1", Total: decimal.NewFromInt(80), Status: models.OrderStatusPending})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type  string       `json:"type"`
		Order models.Order `json:"order"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "order.placed", msg.Type)
	assert.Equal(t, "o-1", msg.Order.ID)
	assert.True(t, decimal.NewFromInt(80).Equal(msg.Order.Total))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return feed.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestOrderFeed_Origin(t *testing.T) {
	feed := NewOrderFeed([]string{"https://admin.example.com/"}, zap.NewNop())
	url := feedServer(t, feed)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://admin.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
