package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/go-chi/chi/v5"
)

type HealthResponse struct {
	Status         string `json:"status"`
	InstancesCount int    `json:"instances_count"`
	DBSizeBytes    int64  `json:"db_size_bytes"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	instances, err := s.store.ListInstances(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	// Get database size when the store is backed by SQL
	var dbSize int64
	if db, ok := s.store.(interface{ DB() *sql.DB }); ok {
		row := db.DB().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&dbSize); err != nil {
			dbSize = 0
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		InstancesCount: len(instances),
		DBSizeBytes:    dbSize,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
	})
}

// BeaconRequest represents an incoming beacon event from ckpay.js
type BeaconRequest struct {
	ModalID   string  `json:"m"`
	EventType string  `json:"e"`
	VisitorID string  `json:"vid"`
	Device    string  `json:"d"`
	Country   string  `json:"c"`
	Referrer  string  `json:"r"`
	Token     string  `json:"tk"`
	Amount    float64 `json:"a"`
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	// Set CORS headers for all responses
	setCORS(w, "POST, OPTIONS")

	// Handle preflight
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req BeaconRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate required fields
	if req.ModalID == "" || req.VisitorID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	eventType := store.EventType(req.EventType)
	if eventType != store.EventView && eventType != store.EventConvert {
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}
	if eventType == store.EventConvert && req.Amount < 0 {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Inactive modals are not embeddable, so their beacons are dropped
	cfg, err := s.store.GetModal(ctx, req.ModalID)
	if err != nil || !cfg.IsActive {
		http.Error(w, "Modal not found", http.StatusNotFound)
		return
	}

	country := req.Country
	if country == "" {
		country = r.Header.Get("CF-IPCountry")
	}

	event := store.Event{
		ModalID:   req.ModalID,
		Type:      eventType,
		VisitorID: req.VisitorID,
		Device:    normalizeDevice(req.Device),
		Country:   strings.ToUpper(country),
		Referrer:  referrerHost(req.Referrer),
	}
	if eventType == store.EventConvert {
		event.Token = req.Token
		event.Amount = req.Amount
	}

	// Record event (deduplication handled by store)
	if err := s.store.RecordEvent(ctx, event); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Modal not found", http.StatusNotFound)
			return
		}
		s.log.WithError(err).WithField("modal", req.ModalID).Error("failed to record event")
		http.Error(w, "Failed to record event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handlePublicModal returns the public configuration ckpay.js renders. The
// webhook URL never leaves the server.
func (s *Server) handlePublicModal(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cfg, err := s.store.GetModal(r.Context(), chi.URLParam(r, "modalID"))
	if err != nil || !cfg.IsActive {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "modal not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, cfg.Public())
}

// handleRenderModal returns the modal's form markup for a viewport, the same
// markup the dashboard preview shows. ckpay.js injects it when the modal opens.
func (s *Server) handleRenderModal(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	viewport, err := snippets.ParseViewport(r.URL.Query().Get("viewport"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_VIEWPORT", err.Error())
		return
	}

	cfg, err := s.store.GetModal(r.Context(), chi.URLParam(r, "modalID"))
	if err != nil || !cfg.IsActive {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "modal not found")
		return
	}

	markup, err := snippets.RenderPreview(cfg, viewport)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "RENDER_FAILED", "failed to render modal")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write([]byte(markup))
}

func normalizeDevice(d string) string {
	switch strings.ToLower(d) {
	case "desktop", "tablet", "mobile":
		return strings.ToLower(d)
	default:
		return ""
	}
}

// referrerHost keeps only the host of a referrer URL.
func referrerHost(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if i := strings.Index(ref, "://"); i >= 0 {
		ref = ref[i+3:]
	}
	if i := strings.IndexAny(ref, "/?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimPrefix(strings.ToLower(ref), "www.")
}
