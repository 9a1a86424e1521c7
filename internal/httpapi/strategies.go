package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"strategy-lab/internal/domain"
)

type strategyBody struct {
	Name           string   `json:"name"`
	BuyConditions  []string `json:"buy_conditions"`
	SellConditions []string `json:"sell_conditions"`
	BaseData       []string `json:"base_data"`
}

func (b strategyBody) strategy() domain.Strategy {
	return domain.Strategy{
		Name:           b.Name,
		BuyConditions:  b.BuyConditions,
		SellConditions: b.SellConditions,
		BaseData:       b.BaseData,
	}
}

type strategyJSON struct {
	strategyBody
	Backtests []recordJSON `json:"backtests"`
}

type recordJSON struct {
	ID               string           `json:"id"`
	SubmittedAt      string           `json:"submitted_at"`
	Range            domain.TimeRange `json:"range"`
	Instruments      []string         `json:"instruments"`
	BuyConditions    []string         `json:"buy_conditions"`
	SellConditions   []string         `json:"sell_conditions"`
	IndexCode        string           `json:"index_code,omitempty"`
	IndexName        string           `json:"index_name,omitempty"`
	Expanded         bool             `json:"expanded"`
	Selected         bool             `json:"selected"`
	Fetched          bool             `json:"fetched"`
	Categories       []string         `json:"categories,omitempty"`
	SelectedCategory string           `json:"selected_category,omitempty"`
}

func toStrategyJSON(s domain.Strategy) strategyJSON {
	out := strategyJSON{
		strategyBody: strategyBody{
			Name:           s.Name,
			BuyConditions:  s.BuyConditions,
			SellConditions: s.SellConditions,
			BaseData:       s.BaseData,
		},
		Backtests: make([]recordJSON, 0, len(s.BacktestHistory)),
	}
	for i := range s.BacktestHistory {
		r := &s.BacktestHistory[i]
		out.Backtests = append(out.Backtests, recordJSON{
			ID:               r.ID,
			SubmittedAt:      r.SubmittedAt,
			Range:            r.Range(),
			Instruments:      r.Instruments,
			BuyConditions:    r.BuyConditions,
			SellConditions:   r.SellConditions,
			IndexCode:        r.IndexCode,
			IndexName:        r.IndexName,
			Expanded:         r.Expanded,
			Selected:         r.Selected,
			Fetched:          r.Fetched(),
			Categories:       r.VisibleCategoryNames(),
			SelectedCategory: r.SelectedCategory,
		})
	}
	return out
}

func toStrategiesJSON(strategies []domain.Strategy) []strategyJSON {
	out := make([]strategyJSON, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, toStrategyJSON(s))
	}
	return out
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.dash.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStrategiesJSON(h.dash.Strategies()))
}

func (h *Handler) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, toStrategiesJSON(h.dash.Strategies()))
}

func (h *Handler) GetStrategy(c *gin.Context) {
	s, err := h.dash.Strategy(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStrategyJSON(s))
}

func (h *Handler) CreateStrategy(c *gin.Context) {
	var body strategyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	if err := h.dash.CreateStrategy(c.Request.Context(), body.strategy()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStrategiesJSON(h.dash.Strategies()))
}

// UpdateStrategy replaces the conditions of the strategy named in the path.
func (h *Handler) UpdateStrategy(c *gin.Context) {
	var body strategyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	body.Name = c.Param("name")
	if err := h.dash.UpdateStrategy(c.Request.Context(), body.strategy()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStrategiesJSON(h.dash.Strategies()))
}

// DeleteStrategy deletes only with ?confirm=true; otherwise it reports
// deleted=false and changes nothing.
func (h *Handler) DeleteStrategy(c *gin.Context) {
	deleted, err := h.dash.DeleteStrategy(c.Request.Context(), c.Param("name"), confirmer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) HistoryCSV(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.dash.Strategy(name); err != nil {
		h.fail(c, err)
		return
	}
	filename := name + "_history_" + time.Now().Format("20060102") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	if err := h.dash.WriteHistoryCSV(c.Writer, name); err != nil {
		h.logger.Error("write history csv", "strategy", name, "err", err)
	}
}

type selectedBody struct {
	Selected bool `json:"selected"`
}

func (h *Handler) SelectStrategy(c *gin.Context) {
	var body selectedBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	if err := h.dash.SetStrategySelected(c.Param("name"), body.Selected); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, selectedNames(h.dash.SelectedStrategies()))
}

func (h *Handler) SelectedStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, selectedNames(h.dash.SelectedStrategies()))
}

func selectedNames(strategies []domain.Strategy) []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name)
	}
	return names
}

func (h *Handler) SelectedRecords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"indices": nonNil(h.dash.SelectedIndices(c.Param("name")))})
}

func (h *Handler) SelectRecord(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	var body selectedBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	indices := h.dash.SetRecordSelected(c.Param("name"), index, body.Selected)
	c.JSON(http.StatusOK, gin.H{"indices": nonNil(indices)})
}

// DeleteRecords deletes the selected backtests of a strategy. Like
// DeleteStrategy it needs ?confirm=true.
func (h *Handler) DeleteRecords(c *gin.Context) {
	ids, err := h.dash.DeleteSelected(c.Request.Context(), c.Param("name"), confirmer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": nonNil(ids)})
}

func confirmer(c *gin.Context) domain.Confirmer {
	if ok, _ := strconv.ParseBool(c.Query("confirm")); ok {
		return domain.AlwaysConfirm
	}
	return domain.NeverConfirm
}

func (h *Handler) intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		h.badRequest(c, name, "must be an integer")
		return 0, false
	}
	return v, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
