package labapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/timerange"
)

// wrapped encodes v as JSON and then as a JSON string, the way list endpoints reply.
func wrapped(t *testing.T, v any) string {
	t.Helper()
	inner, err := json.Marshal(v)
	require.NoError(t, err)
	outer, err := json.Marshal(string(inner))
	require.NoError(t, err)
	return string(outer)
}

func TestClient_ListStrategies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/getstrategy" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(wrapped(t, []map[string]string{
			{"strategy_name": "momentum", "buy": "ma5>ma20, vol>1", "sell": "ma5<ma20", "baseData": "close"},
		})))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).ListStrategies(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "momentum", got[0].Name)
	assert.Equal(t, []string{"ma5>ma20", "vol>1"}, got[0].BuyConditions)
	assert.Equal(t, []string{"ma5<ma20"}, got[0].SellConditions)
}

func TestClient_ListBacktests_FiltersByStrategyAndParsesDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "momentum", req["strategyname"])

		w.Write([]byte(wrapped(t, []map[string]any{
			{"strategyname": "momentum", "backtestname": "bt1", "date": "2024/1/2", "startdate": 1704067200000, "enddate": "2024-06-01", "stocklist": "000001, 000002", "buyConditions": "a", "sellConditions": "b"},
			{"strategyname": "other", "backtestname": "bt2", "startdate": "2024-01-01", "enddate": "2024-06-01", "stocklist": "000003"},
		})))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).ListBacktests(context.Background(), "momentum")
	require.NoError(t, err)
	require.Len(t, got, 1)

	start, _ := timerange.ParseDate("2024-01-01")
	end, _ := timerange.ParseDate("2024-06-01")
	assert.Equal(t, "bt1", got[0].ID)
	assert.Equal(t, start, got[0].StartDate)
	assert.Equal(t, end, got[0].EndDate)
	assert.Equal(t, []string{"000001", "000002"}, got[0].Instruments)
	assert.False(t, got[0].Fetched())
}

func TestClient_SubmitBacktest_Payload(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	rng, err := timerange.ParseRange("2024-01-01", "2024-06-01")
	require.NoError(t, err)

	err = NewClient(server.URL).SubmitBacktest(context.Background(), domain.BacktestRequest{
		StrategyName:   "momentum",
		BacktestID:     "batch_2024-01-01_2024-06-01_abcd1234",
		Range:          rng,
		Instruments:    []string{"000001", " 000002 ", ""},
		BuyConditions:  []string{"a", "b"},
		SellConditions: []string{"c"},
		IndexCode:      "000300",
		IndexName:      "CSI 300",
	})
	require.NoError(t, err)

	assert.Equal(t, "momentum", got["strategyname"])
	assert.Equal(t, "batch_2024-01-01_2024-06-01_abcd1234", got["backtestname"])
	assert.Equal(t, "2024-01-01", got["startdate"])
	assert.Equal(t, "2024-06-01", got["enddate"])
	assert.Equal(t, "000001,000002", got["stocklist"])
	assert.Equal(t, "a,b", got["buyConditions"])
	assert.Equal(t, "000300", got["index_code"])
}

func TestClient_FetchLeaderboards_KeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := `{"returns":[{"code":"000002","gain":1.50,"first":"2024-01-03","ok":true,"note":null}],` +
			`"alpha":[{"code":"000001","gain":-3}]}`
		b, _ := json.Marshal(doc)
		w.Write(b)
	}))
	defer server.Close()

	set, err := NewClient(server.URL).FetchLeaderboards(context.Background(), "bt1", "000001")
	require.NoError(t, err)

	assert.Equal(t, []string{"returns", "alpha"}, set.Categories)
	row := set.Rows["returns"][0]
	assert.Equal(t, []string{"code", "gain", "first", "ok", "note"}, row.Columns)

	gain, ok := row.Get("gain")
	require.True(t, ok)
	assert.Equal(t, domain.KindNumber, gain.Kind)
	assert.Equal(t, "1.5", gain.Text())

	note, _ := row.Get("note")
	assert.Equal(t, domain.KindNull, note.Kind)
}

func TestClient_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"strategy not found"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL).DeleteStrategy(context.Background(), "ghost")

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusNotFound, svcErr.Status)
	assert.Equal(t, "strategy not found", svcErr.Message)
}

func TestClient_ServiceErrorWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>boom</html>`))
	}))
	defer server.Close()

	err := NewClient(server.URL).DeleteBacktests(context.Background(), []string{"a", "b"})

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, genericFailure, svcErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).ListIndexes(context.Background())

	var tErr *TransportError
	assert.True(t, errors.As(err, &tErr))
}

func TestClient_DeleteBacktests_JoinsIDs(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL).DeleteBacktests(context.Background(), []string{"bt1", "bt3"}))
	assert.Equal(t, "bt1,bt3", got["backtestname"])
}

func TestClient_IndexConstituents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"000001,000002,600000"}`))
	}))
	defer server.Close()

	codes, err := NewClient(server.URL).IndexConstituents(context.Background(), "000300")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001", "000002", "600000"}, codes)
}
