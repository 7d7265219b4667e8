package http

import (
	"net/http"

	"sismobi/internal/cache"
	"sismobi/internal/core"
	applog "sismobi/internal/log"
	"sismobi/internal/middleware/ratelimit"
	"sismobi/internal/middleware/security"
	"sismobi/internal/storage"
)

type summaryResponse struct {
	Summary     core.FinancialSummary `json:"summary"`
	Diagnostics core.Diagnostics      `json:"diagnostics"`
	Cached      bool                  `json:"cached"`
}

type alertsResponse struct {
	Alerts      []core.Alert     `json:"alerts"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
	Cached      bool             `json:"cached"`
}

type cacheStatsResponse struct {
	Caches    []cache.Stats             `json:"caches"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

// handleSummary returns the current month's financial summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	world, diag, err := storage.LoadWorld(r.Context(), s.store)
	if err != nil {
		s.writeStoreError(w, r, applog.OpRead, err)
		return
	}
	res := s.agg.Summary(r.Context(), world.Properties, world.Transactions)
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:     res.Summary,
		Diagnostics: diag.Add(res.Diagnostics),
		Cached:      res.Cached,
	})
}

// handleGeneratedAlerts returns freshly generated alerts without storing them.
func (s *Server) handleGeneratedAlerts(w http.ResponseWriter, r *http.Request) {
	world, diag, err := storage.LoadWorld(r.Context(), s.store)
	if err != nil {
		s.writeStoreError(w, r, applog.OpRead, err)
		return
	}
	res := s.agg.Alerts(r.Context(), world)
	alerts := res.Alerts
	if alerts == nil {
		alerts = []core.Alert{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{
		Alerts:      alerts,
		Diagnostics: diag.Add(res.Diagnostics),
		Cached:      res.Cached,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Caches:    s.agg.Stats(),
		RateLimit: s.rateLimiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var cleared int
	if s.cacheManager != nil {
		cleared = s.cacheManager.ClearAll()
	} else {
		cleared = s.agg.ClearCaches()
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentCache).InfoContext(r.Context(), "Caches cleared", applog.FieldCount, cleared)
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}
