package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"strategy-lab/internal/dashboard"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/timerange"
)

type reportJSON struct {
	*domain.CampaignReport
	Message string `json:"message"`
}

func (h *Handler) SubmitSingle(c *gin.Context) {
	var req dashboard.SingleSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	report, err := h.dash.SubmitSingle(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reportJSON{CampaignReport: report, Message: report.Message()})
}

// SubmitBatch runs a campaign over the selected strategies. Partial failure
// is reported in the body with status 200.
func (h *Handler) SubmitBatch(c *gin.Context) {
	var req dashboard.BatchSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	report, err := h.dash.SubmitBatch(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reportJSON{CampaignReport: report, Message: report.Message()})
}

func (h *Handler) ListCampaigns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(c, "limit", "must be an integer")
			return
		}
		limit = v
	}
	reports, err := h.dash.Campaigns(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(reports))
}

func (h *Handler) GetCampaign(c *gin.Context) {
	report, err := h.dash.Campaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reportJSON{CampaignReport: report, Message: report.Message()})
}

func (h *Handler) Drafts(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.Drafts())
}

func (h *Handler) InitDrafts(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.InitDrafts())
}

func (h *Handler) AddRange(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.AddRange(c.Param("name")))
}

func (h *Handler) SetRange(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	var r domain.TimeRange
	if err := c.ShouldBindJSON(&r); err != nil {
		h.badRequest(c, "range", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.dash.SetRange(c.Param("name"), index, r))
}

func (h *Handler) RemoveRange(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.dash.RemoveRange(c.Param("name"), index))
}

type presetBody struct {
	Preset timerange.Preset `json:"preset"`
}

func (h *Handler) FillPreset(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	var body presetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "body", err.Error())
		return
	}
	drafts, err := h.dash.FillPreset(c.Param("name"), index, body.Preset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

type generateBody struct {
	Count        int `json:"count"`
	DurationDays int `json:"duration_days"`
}

func (h *Handler) bindGenerate(c *gin.Context) (generateBody, bool) {
	var body generateBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, "body", err.Error())
			return body, false
		}
	}
	return body, true
}

func (h *Handler) FillGenerated(c *gin.Context) {
	body, ok := h.bindGenerate(c)
	if !ok {
		return
	}
	drafts, err := h.dash.FillGenerated(c.Param("name"), body.Count, body.DurationDays)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

func (h *Handler) AutoGenerate(c *gin.Context) {
	body, ok := h.bindGenerate(c)
	if !ok {
		return
	}
	drafts, err := h.dash.AutoGenerate(body.Count, body.DurationDays)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

// Windows previews generated windows; ?count= and ?days= override the
// configured generator.
func (h *Handler) Windows(c *gin.Context) {
	count, _ := strconv.Atoi(c.Query("count"))
	days, _ := strconv.Atoi(c.Query("days"))
	c.JSON(http.StatusOK, nonNil(h.dash.Windows(count, days)))
}

func (h *Handler) Preset(c *gin.Context) {
	r, err := h.dash.PresetRange(timerange.Preset(c.Param("preset")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) Indexes(c *gin.Context) {
	indexes, err := h.dash.Indexes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(indexes))
}

func (h *Handler) IndexConstituents(c *gin.Context) {
	codes, err := h.dash.IndexConstituents(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(codes))
}

func (h *Handler) ReferenceOptions(c *gin.Context) {
	opts, err := h.dash.ReferenceOptions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
