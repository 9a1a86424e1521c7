// Package httpapi exposes the dashboard over JSON HTTP endpoints.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"strategy-lab/internal/dashboard"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/labapi"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
)

// Handler serves the dashboard operations.
type Handler struct {
	dash   *dashboard.Dashboard
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger means slog.Default().
func NewHandler(dash *dashboard.Dashboard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dash: dash, logger: logger}
}

// NewRouter builds a gin engine with every route registered.
func NewRouter(dash *dashboard.Dashboard, logger *slog.Logger) *gin.Engine {
	h := NewHandler(dash, logger)
	router := gin.New()
	router.Use(gin.Recovery(), h.requestMiddleware())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes binds the handler methods to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	api := router.Group("/api")
	{
		api.POST("/refresh", h.Refresh)

		api.GET("/strategies", h.ListStrategies)
		api.POST("/strategies", h.CreateStrategy)
		api.GET("/strategies/:name", h.GetStrategy)
		api.PUT("/strategies/:name", h.UpdateStrategy)
		api.DELETE("/strategies/:name", h.DeleteStrategy)
		api.GET("/strategies/:name/history.csv", h.HistoryCSV)
		api.PUT("/strategies/:name/selected", h.SelectStrategy)
		api.GET("/strategies/:name/records/selected", h.SelectedRecords)
		api.PUT("/strategies/:name/records/:index/selected", h.SelectRecord)
		api.POST("/strategies/:name/records/delete", h.DeleteRecords)
		api.GET("/selected-strategies", h.SelectedStrategies)

		api.POST("/backtests/expand-all", h.ExpandAll)
		api.POST("/backtests/collapse-all", h.CollapseAll)
		api.POST("/backtests/:id/expand", h.Expand)
		api.POST("/backtests/:id/reload", h.Reload)
		api.POST("/backtests/:id/collapse", h.Collapse)
		api.GET("/backtests/:id/leaderboard", h.RecordLeaderboard)
		api.PUT("/backtests/:id/category", h.SelectCategory)
		api.POST("/backtests/:id/page", h.NavigateRecord)
		api.GET("/backtests/:id/trades", h.Trades)
		api.GET("/backtests/:id/archive", h.Archive)

		api.GET("/leaderboard", h.Leaderboard)
		api.GET("/leaderboard/export", h.Export)
		api.GET("/leaderboard/columns", h.Columns)
		api.GET("/leaderboard/categories", h.Categories)
		api.PUT("/leaderboard/filters", h.ApplyFilters)
		api.DELETE("/leaderboard/filters", h.ClearFilters)
		api.DELETE("/leaderboard/filters/:index", h.RemoveFilter)
		api.PUT("/leaderboard/unique", h.SetUnique)
		api.POST("/leaderboard/page", h.NavigatePage)

		api.POST("/campaigns/single", h.SubmitSingle)
		api.POST("/campaigns/batch", h.SubmitBatch)
		api.GET("/campaigns", h.ListCampaigns)
		api.GET("/campaigns/:id", h.GetCampaign)

		api.GET("/drafts", h.Drafts)
		api.POST("/drafts/init", h.InitDrafts)
		api.POST("/drafts/generate", h.AutoGenerate)
		api.POST("/drafts/:name/ranges", h.AddRange)
		api.PUT("/drafts/:name/ranges/:index", h.SetRange)
		api.DELETE("/drafts/:name/ranges/:index", h.RemoveRange)
		api.POST("/drafts/:name/ranges/:index/preset", h.FillPreset)
		api.POST("/drafts/:name/generate", h.FillGenerated)

		api.GET("/windows", h.Windows)
		api.GET("/presets/:preset", h.Preset)
		api.GET("/indexes", h.Indexes)
		api.GET("/indexes/:code/constituents", h.IndexConstituents)
		api.GET("/reference-options", h.ReferenceOptions)
	}
}

// requestMiddleware records latency metrics and logs every request.
func (h *Handler) requestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		observability.RecordHTTPRequest(c.Request.Method, route, status, elapsed.Seconds())

		h.logger.Debug("http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		)
	}
}

// fail writes err as a JSON error body with the status it maps to.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "route", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) badRequest(c *gin.Context, field, message string) {
	h.fail(c, domain.NewValidationError(field, message))
}

func statusFor(err error) int {
	var (
		svcErr       *labapi.ServiceError
		transportErr *labapi.TransportError
	)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrFetchCanceled):
		return http.StatusConflict
	case errors.As(err, &svcErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr),
		errors.Is(err, dashboard.ErrClosed),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
