package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/mavi-boutique/internal/api/middleware"
	"github.com/example/mavi-boutique/internal/boutique"
	"github.com/example/mavi-boutique/internal/command"
	"github.com/example/mavi-boutique/internal/domain/cart"
	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
	"github.com/example/mavi-boutique/internal/query"
	"go.uber.org/zap"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	log          *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		log:          log,
	}
}

// Storefront Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.queryHandler.ListStorefront(q.Get("section"), q.Get("q"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryHandler.GetProduct(r.PathValue("id"))
	if !ok {
		respondJSONError(w, "product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type applyPromoRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

func (h *Handlers) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quote, err := h.queryHandler.ApplyPromo(req.Code, req.Subtotal)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// PlaceOrder checks out a cart. The session, when present, supplies the
// customer's platform identity.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.Checkout
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		cmd.UserID = claims.UserID
		cmd.Username = claims.Username
	}

	placed, err := h.cmdHandler.Checkout(r.Context(), cmd)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, placed)
}

// Admin Handlers

func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.GetState())
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.GetStats())
}

func (h *Handlers) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListProducts(r.URL.Query().Get("id")))
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.cmdHandler.AddProduct(r.Context(), cmd)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ID = r.PathValue("id")

	p, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteProduct{ProductID: r.PathValue("id")}
	if err := h.cmdHandler.DeleteProduct(r.Context(), cmd); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListOrders())
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.queryHandler.GetOrder(r.PathValue("id"))
	if !ok {
		respondJSONError(w, "order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// ConfirmOrder answers 200 even when nothing was confirmed; the body says
// whether the order changed.
func (h *Handlers) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirmed, err := h.cmdHandler.ConfirmOrder(r.Context(), command.ConfirmOrder{OrderID: id})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"order_id": id, "confirmed": confirmed})
}

func (h *Handlers) GetPromos(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListPromos())
}

func (h *Handlers) CreatePromo(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddPromo
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.cmdHandler.AddPromo(r.Context(), cmd)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// Helper functions

// respondErr maps domain errors onto HTTP statuses. Anything unrecognised is
// a backend failure and is logged rather than echoed.
func (h *Handlers) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
		respondJSONError(w, "internal error", status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

var badRequestErrors = []error{
	product.ErrInvalidID,
	product.ErrNoImages,
	product.ErrTooManyImages,
	product.ErrInvalidImage,
	product.ErrInvalidPrice,
	product.ErrInvalidQuantity,
	product.ErrInvalidSection,
	order.ErrEmptyOrder,
	order.ErrInvalidOrderType,
	order.ErrMissingCustomer,
	order.ErrInvalidOrderAmount,
	promo.ErrInvalidCode,
	promo.ErrInvalidDiscount,
	cart.ErrInvalidQuantity,
	cart.ErrInvalidSubtotal,
	cart.ErrInsufficientStock,
	command.ErrInvalidPromo,
	boutique.ErrInvalidRole,
}

func statusFor(err error) int {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, promo.ErrPromoNotFound):
		return http.StatusNotFound
	case errors.Is(err, boutique.ErrDuplicateProduct):
		return http.StatusConflict
	case errors.Is(err, boutique.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
