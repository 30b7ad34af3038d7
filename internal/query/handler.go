package query

import (
	"math"
	"strings"

	"github.com/example/mavi-boutique/internal/boutique"
	"github.com/example/mavi-boutique/internal/domain/cart"
	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
	"github.com/example/mavi-boutique/internal/readmodel"
)

type Handler struct {
	store *boutique.Store
}

func NewHandler(store *boutique.Store) *Handler {
	return &Handler{store: store}
}

// Storefront
func (h *Handler) ListStorefront(section, q string) ([]product.Product, error) {
	var sec product.Section
	if strings.TrimSpace(section) != "" {
		parsed, err := product.ParseSection(section)
		if err != nil {
			return nil, err
		}
		sec = parsed
	}
	return h.store.Storefront(sec, strings.TrimSpace(q)), nil
}

func (h *Handler) GetProduct(id string) (product.Product, bool) {
	return h.store.Product(id)
}

// ApplyPromo quotes the discounted total for a cart subtotal.
func (h *Handler) ApplyPromo(code string, subtotal float64) (readmodel.PromoQuote, error) {
	if subtotal < 0 || math.IsNaN(subtotal) || math.IsInf(subtotal, 0) {
		return readmodel.PromoQuote{}, cart.ErrInvalidSubtotal
	}
	p, ok := h.store.FindPromo(code)
	if !ok {
		return readmodel.PromoQuote{}, promo.ErrPromoNotFound
	}
	return readmodel.PromoQuote{
		Code:               p.Code,
		DiscountPercentage: p.DiscountPercentage,
		Subtotal:           subtotal,
		Total:              cart.ApplyDiscount(subtotal, p.DiscountPercentage),
	}, nil
}

// Admin
func (h *Handler) ListProducts(idFilter string) []product.Product {
	return h.store.Products(strings.TrimSpace(idFilter))
}

func (h *Handler) ListOrders() []order.Order {
	return h.store.Orders()
}

func (h *Handler) GetOrder(id string) (order.Order, bool) {
	return h.store.Order(id)
}

func (h *Handler) ListPromos() []promo.PromoCode {
	return h.store.Promos()
}

func (h *Handler) GetStats() readmodel.Stats {
	return h.store.Stats()
}

func (h *Handler) GetState() boutique.AppState {
	return h.store.Snapshot()
}

// Session
func (h *Handler) Session(userID, username string, isAdmin bool) readmodel.Session {
	role := h.store.Role()
	if role == boutique.RoleAdmin && !isAdmin {
		role = boutique.RoleUser
	}
	return readmodel.Session{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		Role:     string(role),
	}
}
