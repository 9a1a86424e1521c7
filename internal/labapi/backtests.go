package labapi

import (
	"context"
	"fmt"
	"strings"

	"strategy-lab/internal/domain"
)

type submitBacktestRequest struct {
	StrategyName   string `json:"strategyname"`
	BacktestName   string `json:"backtestname"`
	Date           string `json:"date"`
	StartDate      string `json:"startdate"`
	EndDate        string `json:"enddate"`
	StockList      string `json:"stocklist"`
	BuyConditions  string `json:"buyConditions"`
	SellConditions string `json:"sellConditions"`
	IndexCode      string `json:"index_code"`
	IndexName      string `json:"index_name"`
}

// SubmitBacktest submits one backtest job.
func (c *Client) SubmitBacktest(ctx context.Context, req domain.BacktestRequest) error {
	_, err := c.post(ctx, "submit backtest", "/api/addbacktest", submitBacktestRequest{
		StrategyName:   req.StrategyName,
		BacktestName:   req.BacktestID,
		Date:           req.SubmittedAt,
		StartDate:      req.Range.StartText(),
		EndDate:        req.Range.EndText(),
		StockList:      joinList(req.Instruments),
		BuyConditions:  joinList(req.BuyConditions),
		SellConditions: joinList(req.SellConditions),
		IndexCode:      req.IndexCode,
		IndexName:      req.IndexName,
	})
	return err
}

type backtestDetailRequest struct {
	BacktestName string `json:"backtestname"`
	StockCode    string `json:"stockcode"`
}

// FetchLeaderboards returns every leaderboard category of one backtest.
func (c *Client) FetchLeaderboards(ctx context.Context, backtestID, instrument string) (*domain.LeaderboardSet, error) {
	const op = "fetch leaderboards"
	data, err := c.post(ctx, op, "/api/getbacktestall", backtestDetailRequest{BacktestName: backtestID, StockCode: instrument})
	if err != nil {
		return nil, err
	}
	doc, err := unwrapDocument(data)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	categories, raws, err := decodeOrderedObject(doc)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode categories: %w", err)}
	}

	set := &domain.LeaderboardSet{
		Categories: categories,
		Rows:       make(map[string][]domain.Row, len(categories)),
	}
	for _, category := range categories {
		rows, err := decodeRows(raws[category])
		if err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("category %q: %w", category, err)}
		}
		set.Rows[category] = rows
	}
	return set, nil
}

// FetchTrades returns the transaction rows of one instrument within a backtest.
func (c *Client) FetchTrades(ctx context.Context, backtestID, instrument string) ([]domain.Row, error) {
	const op = "fetch trades"
	data, err := c.post(ctx, op, "/api/getbacktestbuysell", backtestDetailRequest{BacktestName: backtestID, StockCode: instrument})
	if err != nil {
		return nil, err
	}
	doc, err := unwrapDocument(data)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	rows, err := decodeRows(doc)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return rows, nil
}

type deleteBacktestsRequest struct {
	BacktestName string `json:"backtestname"`
}

// DeleteBacktests deletes backtests by id in one request.
func (c *Client) DeleteBacktests(ctx context.Context, ids []string) error {
	_, err := c.post(ctx, "delete backtests", "/api/deletebacktest", deleteBacktestsRequest{
		BacktestName: strings.Join(ids, ","),
	})
	return err
}

// ListIndexes returns the indexes whose constituents can seed an instrument list.
func (c *Client) ListIndexes(ctx context.Context) ([]domain.IndexOption, error) {
	var items []domain.IndexOption
	if err := c.postJSON(ctx, "list indexes", "/api/get_index", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type indexCodeRequest struct {
	Code string `json:"code"`
}

type indexConstituentsResponse struct {
	Code string `json:"code"`
}

// IndexConstituents resolves an index into its instrument codes.
func (c *Client) IndexConstituents(ctx context.Context, code string) ([]string, error) {
	var resp indexConstituentsResponse
	if err := c.postJSON(ctx, "index constituents", "/api/get_select_indexcode", indexCodeRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return splitList(resp.Code), nil
}
