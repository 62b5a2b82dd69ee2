package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/inventory-service/internal/inventory/application"
	"github.com/orderflow/inventory-service/internal/inventory/domain"
	"github.com/orderflow/inventory-service/pkg/metrics"
)

// Handler exposes the query/CRUD surface. It only ever calls the
// application service; quantity mutations from here go through
// UpdateQuantity, never through the reservation paths.
type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("inventory-http"),
	}
}

type updateInventoryReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/inventory", h.getInventory)
	r.Get("/api/inventory/{productId}", h.getByProductID)
	r.Put("/api/inventory/{productId}", h.updateByProductID)
	r.Handle("/metrics", metrics.Handler())

	return r
}

// getInventory serves both the stock check (?productId=&quantity=) and the
// full listing when no query parameters are present.
func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetInventory")
	defer span.End()

	productID := r.URL.Query().Get("productId")
	if productID == "" {
		records, err := h.service.ListAll(ctx)
		if err != nil {
			h.serverError(w, "list inventory", err)
			return
		}
		if records == nil {
			records = []domain.StockRecord{}
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity <= 0 {
		http.Error(w, "quantity must be a positive integer", http.StatusBadRequest)
		return
	}

	inStock, err := h.service.IsInStock(ctx, productID, quantity)
	if err != nil {
		h.serverError(w, "stock check", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inStock": inStock})
}

func (h *Handler) getByProductID(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetInventoryByProductID")
	defer span.End()

	rec, err := h.service.GetByProductID(ctx, chi.URLParam(r, "productId"))
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "inventory not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "get inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) updateByProductID(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateInventoryByProductID")
	defer span.End()

	var req updateInventoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 0 {
		http.Error(w, "quantity must not be negative", http.StatusBadRequest)
		return
	}

	rec, err := h.service.UpdateByProductID(ctx, chi.URLParam(r, "productId"), req.Quantity)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "inventory not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "update inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op+" failed", "err", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
