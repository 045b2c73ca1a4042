package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/service"
	"go.uber.org/zap"
)

// MatchHandler exposes the product identity resolver over HTTP
type MatchHandler struct {
	matcher *service.MatchService
	actors  *service.ActorService
	logger  *zap.Logger
}

func NewMatchHandler(matcher *service.MatchService, actors *service.ActorService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{matcher: matcher, actors: actors, logger: logger}
}

// Resolve runs the resolution chain for one catalog row
func (h *MatchHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}

	var req domain.MatchProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.matcher.MatchProduct(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// History returns the attempt history for a source reference
func (h *MatchHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}

	sourceRef := r.URL.Query().Get("sourceRef")
	if sourceRef == "" {
		respondWithError(w, http.StatusBadRequest, "sourceRef query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.matcher.GetMatchHistory(r.Context(), actor, sourceRef, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
