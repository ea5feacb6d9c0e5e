package handler

import (
	"net/http"
	"time"
)

// Counter reports how many operations a store tracks
type Counter interface {
	Len() int
}

// HealthHandler serves the liveness probe
type HealthHandler struct {
	service   string
	accounts  int
	matchings Counter
	syncs     Counter
	startedAt time.Time
}

// NewHealthHandler creates a health handler
func NewHealthHandler(service string, accounts int, matchings, syncs Counter) *HealthHandler {
	return &HealthHandler{
		service:   service,
		accounts:  accounts,
		matchings: matchings,
		syncs:     syncs,
		startedAt: time.Now(),
	}
}

// Health reports process liveness and the number of tracked operations
// @Summary Health check
// @Description Liveness with the number of tracked matching and sync operations
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   h.service,
		"accounts":  h.accounts,
		"uptime":    time.Since(h.startedAt).Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"operations": map[string]int{
			"matching": h.matchings.Len(),
			"sync":     h.syncs.Len(),
		},
	})
}
