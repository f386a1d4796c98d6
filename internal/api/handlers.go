package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/ranking"
	"github.com/pkozlov/trendrank/internal/refresh"
	"github.com/pkozlov/trendrank/pkg/logger"
)

// RankingHandler serves the trending ranking endpoints
type RankingHandler struct {
	rankings     *ranking.Service
	coordinator  *ranking.Coordinator
	scheduler    *refresh.Scheduler
	defaultLimit int
	maxLimit     int
}

// NewRankingHandler creates a ranking handler
func NewRankingHandler(rankings *ranking.Service, coordinator *ranking.Coordinator, scheduler *refresh.Scheduler, defaultLimit, maxLimit int) *RankingHandler {
	return &RankingHandler{
		rankings:     rankings,
		coordinator:  coordinator,
		scheduler:    scheduler,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// GetRankings handles GET /api/v1/rankings?category=&limit=
func (h *RankingHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := models.Scope{Category: r.URL.Query().Get("category")}
	limit := parseIntQuery(r, "limit", h.defaultLimit, 1, h.maxLimit)

	items, err := h.rankings.GetTopRanked(ctx, scope, limit)
	if err != nil {
		logger.Error("Failed to retrieve rankings",
			logger.ErrorField(err),
			logger.String("category", scope.Category),
			logger.Int("limit", limit),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve rankings")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rankings": items,
		"count":    len(items),
		"scope": map[string]interface{}{
			"category": scope.Category,
			"limit":    limit,
		},
	})
}

// GetItem handles GET /api/v1/items/{id}
func (h *RankingHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := mux.Vars(r)["id"]

	item, err := h.rankings.GetItem(ctx, itemID)
	if errors.Is(err, models.ErrItemNotFound) {
		respondWithError(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		logger.Error("Failed to retrieve item",
			logger.ErrorField(err),
			logger.String("item_id", itemID),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve item")
		return
	}

	velocity := 0.0
	if v, err := h.rankings.ItemVelocity(ctx, itemID); err == nil {
		velocity = v
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"item":     item,
		"velocity": velocity,
	})
}

// PostMutation handles POST /api/v1/items/{id}/mutations. Collaborator
// services call it after committing a vote/comment/reaction change.
func (h *RankingHandler) PostMutation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := mux.Vars(r)["id"]

	err := h.coordinator.OnScoreMutation(ctx, itemID)
	if errors.Is(err, models.ErrItemNotFound) {
		respondWithError(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		logger.Error("Failed to process mutation event",
			logger.ErrorField(err),
			logger.String("item_id", itemID),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to process mutation event")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"item_id": itemID,
	})
}

// PostRefresh handles POST /api/v1/refresh, triggering a refresh cycle
func (h *RankingHandler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.scheduler.RunRefreshCycle(r.Context())
	if err != nil {
		logger.Error("Manual refresh cycle failed",
			logger.ErrorField(err),
			logger.Duration("duration", time.Since(start)),
		)
		respondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":  "Refresh cycle failed",
			"result": result,
		})
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
