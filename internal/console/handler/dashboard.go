package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/engine"
	"github.com/xela07ax/ran-copilot/internal/geo"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	Header() engine.Snapshot[domain.DashboardKPIs]
	CanvasSnapshots() (string, map[string]any)
	SwitchCanvas(name string) (string, error)
	Cells() (engine.Snapshot[[]domain.CellStatus], error)
	Heatmap(kpi string) (engine.Snapshot[*geojson.FeatureCollection], error)
	Analytics() (engine.Snapshot[[]domain.TimeSeriesData], error)
	Table() (engine.Snapshot[[]domain.CellPerformance], error)
	Refresh(ctx context.Context)
}

// MapSettings - то, что браузеру нужно для подложки карты.
type MapSettings struct {
	APIKey string `json:"api_key"`
	Style  string `json:"style"`
}

type DashboardHandler struct {
	service DashboardService
	mapCfg  MapSettings
}

func NewDashboardHandler(s DashboardService, mapCfg MapSettings) *DashboardHandler {
	return &DashboardHandler{service: s, mapCfg: mapCfg}
}

type headerTiers struct {
	RRCSuccessRate domain.Tier `json:"rrc_success_rate"`
	NetworkLoad    domain.Tier `json:"network_load"`
	Status         domain.Tier `json:"status"`
}

type headerResponse struct {
	engine.Snapshot[domain.DashboardKPIs]
	Tiers headerTiers `json:"tiers"`
}

// Header GET /api/v1/header
func (h *DashboardHandler) Header(w http.ResponseWriter, r *http.Request) {
	s := h.service.Header()
	resp := headerResponse{Snapshot: s}
	if s.State != engine.StateLoading {
		resp.Tiers = headerTiers{
			RRCSuccessRate: domain.SuccessRateTier(s.Data.RRCSuccessRate),
			NetworkLoad:    domain.LoadTier(s.Data.NetworkLoad),
			Status:         domain.NetworkTier(s.Data.Status),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Canvas GET /api/v1/canvas - активная вью и снимки ее view-model.
func (h *DashboardHandler) Canvas(w http.ResponseWriter, r *http.Request) {
	name, views := h.service.CanvasSnapshots()
	writeJSON(w, http.StatusOK, map[string]any{"view": name, "views": views})
}

// SwitchCanvas POST /api/v1/canvas/{view}
func (h *DashboardHandler) SwitchCanvas(w http.ResponseWriter, r *http.Request) {
	name, err := h.service.SwitchCanvas(chi.URLParam(r, "view"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"view": name})
}

// MapCells GET /api/v1/map/cells - маркеры сот в GeoJSON.
func (h *DashboardHandler) MapCells(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Cells()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	var fc *geojson.FeatureCollection
	if s.State != engine.StateLoading {
		fc = geo.Markers(s.Data)
	}
	writeJSON(w, http.StatusOK, reshape(s, fc))
}

// Heatmap GET /api/v1/map/heatmap/{kpi}
func (h *DashboardHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Heatmap(chi.URLParam(r, "kpi"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// MapConfig GET /api/v1/map/config
func (h *DashboardHandler) MapConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mapCfg)
}

// Analytics GET /api/v1/analytics
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Analytics()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type tableRow struct {
	domain.CellPerformance
	RRCTier      domain.Tier `json:"rrc_tier"`
	HandoverTier domain.Tier `json:"handover_tier"`
	LoadTier     domain.Tier `json:"load_tier"`
	StatusTier   domain.Tier `json:"status_tier"`
}

// Table GET /api/v1/table - строки с цветовыми уровнями.
func (h *DashboardHandler) Table(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Table()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	rows := make([]tableRow, 0, len(s.Data))
	for _, p := range s.Data {
		rows = append(rows, tableRow{
			CellPerformance: p,
			RRCTier:         domain.SuccessRateTier(p.RRCSuccessRate),
			HandoverTier:    domain.HandoverTier(p.HandoverSuccessRate),
			LoadTier:        domain.LoadTier(p.NetworkLoad),
			StatusTier:      domain.StateTier(p.Status),
		})
	}
	writeJSON(w, http.StatusOK, reshape(s, rows))
}

// Refresh POST /api/v1/refresh - внеочередной опрос шапки и активной вью.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.service.Refresh(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func reshape[T, U any](s engine.Snapshot[T], data U) engine.Snapshot[U] {
	return engine.Snapshot[U]{
		View:      s.View,
		State:     s.State,
		Data:      data,
		UpdatedAt: s.UpdatedAt,
		Error:     s.Error,
		Seq:       s.Seq,
	}
}
