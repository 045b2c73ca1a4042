package handler

import (
	"encoding/json"
	"net/http"

	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/service"
	"go.uber.org/zap"
)

// OfferHandler exposes the offer lifecycle over HTTP
type OfferHandler struct {
	offers *service.OfferService
	actors *service.ActorService
	logger *zap.Logger
}

func NewOfferHandler(offers *service.OfferService, actors *service.ActorService, logger *zap.Logger) *OfferHandler {
	return &OfferHandler{offers: offers, actors: actors, logger: logger}
}

// Create creates a new draft offer with its lines
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}

	var req domain.CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	offer, err := h.offers.CreateOffer(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, offer)
}

// GetByID returns an offer with its lines and event history
func (h *OfferHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := h.offers.GetOffer(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if offer == nil {
		respondWithError(w, http.StatusNotFound, "offer not found")
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

// Update updates header fields of a draft offer
func (h *OfferHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.UpdateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	offer, err := h.offers.UpdateOffer(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

// UpdateLines replaces the line set of a draft offer
func (h *OfferHandler) UpdateLines(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.UpdateOfferLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	offer, err := h.offers.UpdateOfferLines(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

// Send transitions a draft offer to sent
func (h *OfferHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := h.offers.SendOffer(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

// Accept accepts an offer, locks it, and returns the acceptance snapshot
func (h *OfferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.offers.AcceptOffer(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// Reject transitions an offer to rejected
func (h *OfferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.RejectOfferRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	offer, err := h.offers.RejectOffer(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}
