package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"strategy-lab/internal/leaderboard"
)

func (h *Handler) Expand(c *gin.Context) {
	if err := h.dash.Expand(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.recordView(c)
}

func (h *Handler) Reload(c *gin.Context) {
	if err := h.dash.Reload(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.recordView(c)
}

func (h *Handler) Collapse(c *gin.Context) {
	h.dash.Collapse(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) CollapseAll(c *gin.Context) {
	h.dash.CollapseAll()
	c.Status(http.StatusNoContent)
}

type expandAllBody struct {
	Categories []string `json:"categories"`
}

// ExpandAll loads every record sequentially. Per-record failures are part of
// the response body, not an error status.
func (h *Handler) ExpandAll(c *gin.Context) {
	var body expandAllBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, "body", err.Error())
			return
		}
	}
	result, err := h.dash.ExpandAll(c.Request.Context(), body.Categories)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RecordLeaderboard(c *gin.Context) {
	h.recordView(c)
}

func (h *Handler) recordView(c *gin.Context) {
	v, err := h.dash.RecordLeaderboard(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type categoryBody struct {
	Category string `json:"category"`
}

func (h *Handler) SelectCategory(c *gin.Context) {
	var body categoryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	if err := h.dash.SelectCategory(c.Param("id"), body.Category); err != nil {
		h.fail(c, err)
		return
	}
	h.recordView(c)
}

type pageBody struct {
	Direction leaderboard.Direction `json:"direction"`
	Page      int                   `json:"page"`
}

func (b pageBody) valid() bool {
	switch b.Direction {
	case leaderboard.First, leaderboard.Prev, leaderboard.Next, leaderboard.Last:
		return true
	}
	return false
}

func (h *Handler) NavigateRecord(c *gin.Context) {
	var body pageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	if !body.valid() {
		h.badRequest(c, "direction", "expected first|prev|next|last")
		return
	}
	if _, err := h.dash.NavigateRecord(c.Param("id"), body.Direction); err != nil {
		h.fail(c, err)
		return
	}
	h.recordView(c)
}

func (h *Handler) Trades(c *gin.Context) {
	rows, err := h.dash.Trades(c.Request.Context(), c.Param("id"), c.Query("instrument"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

func (h *Handler) Archive(c *gin.Context) {
	rows, err := h.dash.ArchivedRows(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

func (h *Handler) Leaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.Leaderboard())
}

// Export returns the instrument codes of the current page, or of every
// filtered row with ?all=true, as plain text.
func (h *Handler) Export(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	c.String(http.StatusOK, h.dash.Export(all))
}

func (h *Handler) Columns(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.dash.Columns()))
}

func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.dash.Categories()))
}

func (h *Handler) ApplyFilters(c *gin.Context) {
	var drafts []leaderboard.FilterDraft
	if err := c.ShouldBindJSON(&drafts); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	if _, err := h.dash.ApplyFilters(drafts); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dash.Leaderboard())
}

func (h *Handler) ClearFilters(c *gin.Context) {
	h.dash.ClearFilters()
	c.JSON(http.StatusOK, h.dash.Leaderboard())
}

func (h *Handler) RemoveFilter(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	h.dash.RemoveFilter(index)
	c.JSON(http.StatusOK, h.dash.Leaderboard())
}

type uniqueBody struct {
	Unique bool `json:"unique"`
}

func (h *Handler) SetUnique(c *gin.Context) {
	var body uniqueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	h.dash.SetUnique(body.Unique)
	c.JSON(http.StatusOK, h.dash.Leaderboard())
}

// NavigatePage moves the global view by direction, or jumps to page when no
// direction is given.
func (h *Handler) NavigatePage(c *gin.Context) {
	var body pageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	switch {
	case body.Direction == "":
		h.dash.GoToPage(body.Page)
	case body.valid():
		h.dash.Navigate(body.Direction)
	default:
		h.badRequest(c, "direction", "expected first|prev|next|last")
		return
	}
	c.JSON(http.StatusOK, h.dash.Leaderboard())
}
