// Package http exposes the P&L statement and sync endpoints.
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
	"github.com/meridian-erp/meridian-pnl/internal/period"
	"github.com/meridian-erp/meridian-pnl/internal/platform/httpx"
	"github.com/meridian-erp/meridian-pnl/internal/pnl"
	"github.com/meridian-erp/meridian-pnl/internal/realtime"
)

const dateLayout = "2006-01-02"

// Handler wires HTTP interactions for the P&L feature.
type Handler struct {
	logger    *slog.Logger
	service   *pnl.Service
	cache     *pnl.Cache
	scheduler *realtime.Scheduler
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the P&L handler.
func NewHandler(logger *slog.Logger, service *pnl.Service, cache *pnl.Cache, scheduler *realtime.Scheduler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		cache:     cache,
		scheduler: scheduler,
		validate:  validator.New(),
		rateLimit: limiter,
	}
}

// MountRoutes registers the statement and sync endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/api/pnl/statement", h.HandleStatement)
		r.Post("/api/pnl/statement/manual", h.HandleManualStatement)
	})
	r.Post("/api/sync/period-costs", h.HandleScheduleSync)
	r.Post("/api/sync/notify", h.HandleNotify)
	r.Get("/api/sync/updates", h.HandleUpdates)
}

// HandleStatement builds (or serves from cache) the statement for the
// requested period. The response is always a fully shaped structure.
func (h *Handler) HandleStatement(w http.ResponseWriter, r *http.Request) {
	p, custom := h.parseWindow(r)

	// Key is nil-receiver safe and always encodes the custom bounds, so
	// concurrent requests for different windows never collapse into one
	// singleflight build.
	key, err := h.cache.Key(r.Context(), p, custom)
	if err != nil {
		h.logger.Warn("statement cache key", slog.Any("error", err))
		key = string(p)
		if custom != nil {
			key += ":" + custom.Start.Format(dateLayout) + ":" + custom.End.Format(dateLayout)
		}
	}

	result, err := singleflightBuild(r.Context(), key, func(ctx context.Context) (any, error) {
		return h.cache.Fetch(ctx, key, func(ctx context.Context) (*pnl.Structure, error) {
			return h.service.BuildStatement(ctx, p, custom), nil
		})
	})
	if err != nil {
		h.logger.Warn("statement build degraded", slog.Any("error", err))
		httpx.JSON(w, http.StatusOK, h.service.BuildStatement(r.Context(), p, custom))
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type manualStatementRequest struct {
	Period  string            `json:"period"`
	Entries []pnl.ManualEntry `json:"entries" validate:"required,min=1,dive"`
}

// HandleManualStatement builds a fresh statement and merges the supplied
// manual entries into it.
func (h *Handler) HandleManualStatement(w http.ResponseWriter, r *http.Request) {
	var req manualStatementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	st := h.service.BuildStatement(r.Context(), period.Parse(req.Period), nil)
	pnl.ApplyManualEntries(st, req.Entries, h.logger)
	httpx.JSON(w, http.StatusOK, st)
}

type scheduleSyncRequest struct {
	Module      string             `json:"module" validate:"required"`
	Records     []aggregate.Record `json:"records"`
	DateField   string             `json:"dateField" validate:"required"`
	AmountField string             `json:"amountField" validate:"required"`
}

// HandleScheduleSync queues a debounced period-cost push for a module.
func (h *Handler) HandleScheduleSync(w http.ResponseWriter, r *http.Request) {
	var req scheduleSyncRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.scheduler.ScheduleSync(req.Module, req.Records, req.DateField, req.AmountField)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

type notifyRequest struct {
	Module string `json:"module" validate:"required"`
	Action string `json:"action" validate:"required"`
	Data   any    `json:"data"`
}

// HandleNotify queues a debounced change notification.
func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.scheduler.NotifyChange(req.Module, req.Action, req.Data)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// HandleUpdates reports the last successful push per module.
func (h *Handler) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"updates": h.scheduler.Marks()})
}

// parseWindow extracts the period tag and an optional custom window.
// Custom bounds are forwarded verbatim; an inverted pair is logged but not
// rejected, matching the boundary contract.
func (h *Handler) parseWindow(r *http.Request) (period.Period, *period.Window) {
	p := period.Parse(r.URL.Query().Get("period"))

	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		return p, nil
	}
	start, errStart := time.Parse(dateLayout, startRaw)
	end, errEnd := time.Parse(dateLayout, endRaw)
	if errStart != nil || errEnd != nil {
		h.logger.Warn("ignoring unparseable custom bounds",
			slog.String("start", startRaw),
			slog.String("end", endRaw))
		return p, nil
	}
	if !start.Before(end) {
		h.logger.Warn("custom bounds are not ordered",
			slog.Time("start", start),
			slog.Time("end", end))
	}
	return p, &period.Window{Start: start, End: end}
}
