package labapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/timerange"
)

type strategyItem struct {
	Name     string `json:"strategy_name"`
	Buy      string `json:"buy"`
	Sell     string `json:"sell"`
	BaseData string `json:"baseData"`
}

type upsertStrategyRequest struct {
	Name     string `json:"strategy_name"`
	BaseData string `json:"baseData"`
	Buy      string `json:"buy"`
	Sell     string `json:"sell"`
}

type strategyNameRequest struct {
	Name string `json:"strategy_name"`
}

// ListStrategies returns every strategy without backtest history.
func (c *Client) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	var items []strategyItem
	if err := c.postJSON(ctx, "list strategies", "/api/getstrategy", nil, &items); err != nil {
		return nil, err
	}
	out := make([]domain.Strategy, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Strategy{
			Name:           item.Name,
			BuyConditions:  splitList(item.Buy),
			SellConditions: splitList(item.Sell),
			BaseData:       splitList(item.BaseData),
		})
	}
	return out, nil
}

// UpsertStrategy creates a strategy or replaces its conditions.
func (c *Client) UpsertStrategy(ctx context.Context, s domain.Strategy) error {
	_, err := c.post(ctx, "save strategy", "/api/addstrategy", upsertStrategyRequest{
		Name:     s.Name,
		BaseData: joinList(s.BaseData),
		Buy:      joinList(s.BuyConditions),
		Sell:     joinList(s.SellConditions),
	})
	return err
}

// DeleteStrategy deletes a strategy by name.
func (c *Client) DeleteStrategy(ctx context.Context, name string) error {
	_, err := c.post(ctx, "delete strategy", "/api/deletestrategy", strategyNameRequest{Name: name})
	return err
}

type backtestItem struct {
	StrategyName   string   `json:"strategyname"`
	BacktestName   string   `json:"backtestname"`
	Date           string   `json:"date"`
	StartDate      flexDate `json:"startdate"`
	EndDate        flexDate `json:"enddate"`
	StockList      string   `json:"stocklist"`
	BuyConditions  string   `json:"buyConditions"`
	SellConditions string   `json:"sellConditions"`
	IndexCode      string   `json:"index_code"`
	IndexName      string   `json:"index_name"`
}

type listBacktestsRequest struct {
	StrategyName string `json:"strategyname"`
}

// ListBacktests returns the backtest history of one strategy in service order.
func (c *Client) ListBacktests(ctx context.Context, strategyName string) ([]domain.BacktestRecord, error) {
	var items []backtestItem
	if err := c.postJSON(ctx, "list backtests", "/api/getbacktest", listBacktestsRequest{StrategyName: strategyName}, &items); err != nil {
		return nil, err
	}

	out := make([]domain.BacktestRecord, 0, len(items))
	for _, item := range items {
		if item.StrategyName != strategyName {
			continue
		}
		start, err := parseFlexDate(item.StartDate)
		if err != nil {
			return nil, &TransportError{Op: "list backtests", Err: fmt.Errorf("backtest %s start: %w", item.BacktestName, err)}
		}
		end, err := parseFlexDate(item.EndDate)
		if err != nil {
			return nil, &TransportError{Op: "list backtests", Err: fmt.Errorf("backtest %s end: %w", item.BacktestName, err)}
		}
		out = append(out, domain.BacktestRecord{
			ID:             item.BacktestName,
			StrategyName:   item.StrategyName,
			SubmittedAt:    item.Date,
			StartDate:      start,
			EndDate:        end,
			Instruments:    splitList(item.StockList),
			BuyConditions:  splitList(item.BuyConditions),
			SellConditions: splitList(item.SellConditions),
			IndexCode:      item.IndexCode,
			IndexName:      item.IndexName,
		})
	}
	return out, nil
}

func parseFlexDate(d flexDate) (time.Time, error) {
	raw := string(d)
	if strings.HasPrefix(raw, "@") {
		ms, err := strconv.ParseInt(raw[1:], 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return timerange.FromEpochMillis(ms), nil
	}
	return timerange.ParseDate(raw)
}
