package presence

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/crawlerlog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(sub *Subscription) []int {
	var seen []int
	for {
		select {
		case u, ok := <-sub.Updates():
			if !ok {
				return seen
			}
			seen = append(seen, u.ActiveUsers)
		default:
			return seen
		}
	}
}

func TestHubConnectDisconnectBroadcasts(t *testing.T) {
	hub := NewHub()

	a, n := hub.Connect()
	assert.Equal(t, 1, n)
	b, _ := hub.Connect()
	c, n := hub.Connect()
	assert.Equal(t, 3, n)

	assert.Equal(t, []int{1, 2, 3}, drain(a))
	assert.Equal(t, []int{2, 3}, drain(b))
	assert.Equal(t, []int{3}, drain(c))

	assert.Equal(t, 2, hub.Disconnect(c))
	assert.Equal(t, []int{2}, drain(a))
	assert.Equal(t, []int{2}, drain(b))
	assert.Equal(t, 2, hub.Count())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PresenceActive))

	// c's channel is closed after disconnect
	_, ok := <-c.Updates()
	assert.False(t, ok)
}

func TestHubDoubleDisconnectIgnored(t *testing.T) {
	hub := NewHub()
	a, _ := hub.Connect()
	b, _ := hub.Connect()

	assert.Equal(t, 1, hub.Disconnect(a))
	assert.Equal(t, 1, hub.Disconnect(a))
	assert.Equal(t, 1, hub.Disconnect(nil))
	assert.Equal(t, 0, hub.Disconnect(b))
	assert.Equal(t, 0, hub.Disconnect(b))
	assert.Equal(t, 0, hub.Count())
}

func TestHubSlowSubscriberKeepsLatest(t *testing.T) {
	hub := NewHub()
	slow, _ := hub.Connect()

	var subs []*Subscription
	for i := 0; i < subscriberBuffer*2; i++ {
		sub, _ := hub.Connect()
		subs = append(subs, sub)
	}

	seen := drain(slow)
	require.Len(t, seen, subscriberBuffer)
	assert.Equal(t, subscriberBuffer*2+1, seen[len(seen)-1])

	for _, sub := range subs {
		hub.Disconnect(sub)
	}
}

func TestHubConcurrentTransitions(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, _ := hub.Connect()
			hub.Disconnect(sub)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Count())
}

func readCount(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var msg Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, EventUpdateUsers, msg.Event)
	return msg.ActiveUsers
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func TestWebsocketPresenceScenario(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c1 := dial(t, url)
	assert.Equal(t, 1, readCount(t, c1))

	c2 := dial(t, url)
	assert.Equal(t, 2, readCount(t, c2))

	c3 := dial(t, url)
	assert.Equal(t, 3, readCount(t, c3))

	assert.Equal(t, 2, readCount(t, c1))
	assert.Equal(t, 3, readCount(t, c1))
	assert.Equal(t, 3, readCount(t, c2))

	_ = c3.Close(websocket.StatusNormalClosure, "bye")

	assert.Equal(t, 2, readCount(t, c1))
	assert.Equal(t, 2, readCount(t, c2))
	assert.Equal(t, 2, hub.Count())
}
