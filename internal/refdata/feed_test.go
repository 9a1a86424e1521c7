package refdata

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
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func newFeedServer(t *testing.T, answer bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if !answer {
				continue
			}
			switch msg.Event {
			case EventRequestBaseData:
				inner, _ := json.Marshal([]map[string]string{{"baseData": "close"}, {"baseData": "volume"}})
				data, _ := json.Marshal(string(inner))
				conn.WriteJSON(message{Event: EventBaseData, Data: data})
			case EventRequestStockList:
				data, _ := json.Marshal([]map[string]string{{"symbol": "000001", "name": "Ping An Bank"}})
				conn.WriteJSON(message{Event: "response/unrelated"})
				conn.WriteJSON(message{Event: EventStockList, Data: data})
			}
		}
	}))
}

func TestClient_Fetch(t *testing.T) {
	server := newFeedServer(t, true)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts, err := NewClient(wsURL(server.URL)).Fetch(ctx)
	require.NoError(t, err)

	require.Len(t, opts.BaseData, 2)
	assert.Equal(t, "volume", opts.BaseData[1].Value)
	require.Len(t, opts.Instruments, 1)
	assert.Equal(t, "000001", opts.Instruments[0].Value)
	assert.Equal(t, "Ping An Bank", opts.Instruments[0].Label)
}

func TestClient_Fetch_ContextTimeout(t *testing.T) {
	server := newFeedServer(t, false)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewClient(wsURL(server.URL)).Fetch(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
