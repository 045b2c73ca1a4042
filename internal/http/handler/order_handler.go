package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/service"
	"go.uber.org/zap"
)

// OrderHandler exposes the order status machine over HTTP
type OrderHandler struct {
	orders *service.OrderService
	actors *service.ActorService
	logger *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, actors *service.ActorService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, actors: actors, logger: logger}
}

// CreateFromOffer creates the order an accepted offer gives rise to
func (h *OrderHandler) CreateFromOffer(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.CreateOrderFromAcceptedOffer(r.Context(), actor, offerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GetByID returns an order with its lines and event history
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.GetOrder(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order == nil {
		respondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// SetStatus applies a status transition from the transition table
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.SetOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	order, err := h.orders.SetOrderStatus(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Confirm confirms a pending order on behalf of its supplier
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.ConfirmOrderBySupplier(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Decline cancels a pending order on behalf of its supplier
func (h *OrderHandler) Decline(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.DeclineOrderRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	order, err := h.orders.DeclineOrderBySupplier(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// LinkImportCase attaches a compliance case to an order
func (h *OrderHandler) LinkImportCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.LinkImportCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	order, err := h.orders.LinkImportCase(r.Context(), actor, id, req.ImportCaseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListForImporter returns the orders assigned to an importer of record
func (h *OrderHandler) ListForImporter(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.actors)
	if !ok {
		return
	}
	importerID, err := parseUUIDParam(r, "importerId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		status = &s
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.orders.ListOrdersForIOR(r.Context(), actor, importerID, status, offset, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
