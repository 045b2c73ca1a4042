package handler

import (
	"net/http"

	"github.com/winefeed/winefeed-api/internal/mapper"
	"github.com/winefeed/winefeed-api/internal/service"
	"go.uber.org/zap"
)

// ActorHandler exposes the caller's resolved roles
type ActorHandler struct {
	actors *service.ActorService
	logger *zap.Logger
}

func NewActorHandler(actors *service.ActorService, logger *zap.Logger) *ActorHandler {
	return &ActorHandler{actors: actors, logger: logger}
}

// Me returns the caller's resolved roles and owned entity ids. Always
// recomputed so revoked access shows up immediately.
func (h *ActorHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	dto := mapper.ToActorDTO(actor)
	respondJSON(w, http.StatusOK, dto)
}
