// Package refdata reads the selectable reference data (factor base data and
// instrument list) pushed by the execution service over WebSocket.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"strategy-lab/internal/domain"
)

// Event names exchanged with the service.
const (
	EventRequestBaseData  = "api/factor/baseData"
	EventRequestStockList = "api/stock/list"
	EventBaseData         = "response/baseData"
	EventStockList        = "response/stockList"
)

// Options is one snapshot of the reference data.
type Options struct {
	BaseData    []domain.Option `json:"base_data"`
	Instruments []domain.Option `json:"instruments"`
}

// message is the envelope of every frame in both directions.
type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client fetches Options from the service's WebSocket endpoint.
type Client struct {
	endpoint     string
	dialer       *websocket.Dialer
	writeTimeout time.Duration
}

// NewClient creates a feed client for endpoint (ws:// or wss://).
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:     endpoint,
		dialer:       websocket.DefaultDialer,
		writeTimeout: 10 * time.Second,
	}
}

// Fetch requests both option lists and waits until each has been answered or
// ctx is done.
func (c *Client) Fetch(ctx context.Context) (*Options, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial reference feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for _, event := range []string{EventRequestBaseData, EventRequestStockList} {
		_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err := conn.WriteJSON(message{Event: event}); err != nil {
			return nil, fmt.Errorf("request %s: %w", event, err)
		}
	}

	out := &Options{}
	var gotBase, gotStocks bool
	for !gotBase || !gotStocks {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read reference feed: %w", err)
		}
		switch msg.Event {
		case EventBaseData:
			opts, err := decodeBaseData(msg.Data)
			if err != nil {
				return nil, err
			}
			out.BaseData = opts
			gotBase = true
		case EventStockList:
			opts, err := decodeStockList(msg.Data)
			if err != nil {
				return nil, err
			}
			out.Instruments = opts
			gotStocks = true
		}
	}
	return out, nil
}

// payload unwraps data that may arrive as a JSON string holding JSON.
func payload(data json.RawMessage) ([]byte, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, err
		}
		return []byte(inner), nil
	}
	return data, nil
}

func decodeBaseData(data json.RawMessage) ([]domain.Option, error) {
	raw, err := payload(data)
	if err != nil {
		return nil, fmt.Errorf("decode base data: %w", err)
	}
	var items []struct {
		BaseData string `json:"baseData"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode base data: %w", err)
	}
	out := make([]domain.Option, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Option{Value: item.BaseData, Label: item.BaseData})
	}
	return out, nil
}

func decodeStockList(data json.RawMessage) ([]domain.Option, error) {
	raw, err := payload(data)
	if err != nil {
		return nil, fmt.Errorf("decode stock list: %w", err)
	}
	var items []struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode stock list: %w", err)
	}
	out := make([]domain.Option, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Option{Value: item.Symbol, Label: item.Name})
	}
	return out, nil
}
