package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/mavi-boutique/internal/boutique"
	"github.com/example/mavi-boutique/internal/domain/cart"
	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
)

var ErrInvalidPromo = errors.New("promo code is not valid")

// GuestHandle is recorded on orders placed without a platform username.
const GuestHandle = order.GuestHandle

type Handler struct {
	store *boutique.Store
}

func NewHandler(store *boutique.Store) *Handler {
	return &Handler{store: store}
}

// AddProduct validates the product the way the admin wizard does and adds it
// to the catalog.
func (h *Handler) AddProduct(ctx context.Context, cmd AddProduct) (*product.Product, error) {
	p := normalizeProduct(cmd.Product)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := h.store.AddProduct(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct replaces an existing product
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	p := normalizeProduct(cmd.Product)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ok, err := h.store.UpdateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &p, nil
}

// DeleteProduct removes every product with the id
func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	removed, err := h.store.DeleteProduct(ctx, strings.TrimSpace(cmd.ProductID))
	if err != nil {
		return err
	}
	if removed == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

// AddPromo stores an upper-cased promo code
func (h *Handler) AddPromo(ctx context.Context, cmd AddPromo) (*promo.PromoCode, error) {
	p := promo.PromoCode{Code: cmd.Code, DiscountPercentage: cmd.DiscountPercentage}.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := h.store.AddPromo(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Checkout prices the cart against the live catalog and records a pending
// order. Stock is checked here but only deducted on confirmation.
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (*order.Order, error) {
	name := strings.TrimSpace(cmd.UserName)
	phone := strings.TrimSpace(cmd.Phone)
	location := strings.TrimSpace(cmd.Location)
	if location == "" && cmd.Latitude != nil && cmd.Longitude != nil {
		location = FormatCoordinates(*cmd.Latitude, *cmd.Longitude)
	}
	if name == "" || phone == "" || location == "" {
		return nil, order.ErrMissingCustomer
	}

	orderType := order.TypeDelivery
	if cmd.OrderType != "" {
		t, err := order.ParseType(cmd.OrderType)
		if err != nil {
			return nil, err
		}
		orderType = t
	}

	if len(cmd.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}

	// Merge repeated lines for the same product
	quantities := make(map[string]int)
	var productIDs []string
	for _, item := range cmd.Items {
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidOrderAmount
		}
		if _, seen := quantities[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	c := cart.New()
	for _, id := range productIDs {
		p, ok := h.store.Product(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, id)
		}
		if err := c.Add(p, quantities[id]); err != nil {
			return nil, fmt.Errorf("%w: %s", err, id)
		}
	}

	var applied promo.PromoCode
	if code := strings.TrimSpace(cmd.PromoCode); code != "" {
		p, ok := h.store.FindPromo(code)
		if !ok {
			return nil, ErrInvalidPromo
		}
		applied = p
	}

	placed, err := h.store.PlaceOrder(ctx, order.Order{
		UserName:     name,
		Phone:        phone,
		Location:     location,
		Items:        c.Items(),
		TotalPrice:   c.Total(applied.DiscountPercentage),
		OrderType:    orderType,
		UserTelegram: TelegramHandle(cmd.Username),
		UserID:       cmd.UserID,
		PromoCode:    applied.Code,
	})
	if err != nil {
		return nil, err
	}
	return &placed, nil
}

// ConfirmOrder reports false when the order is unknown or not pending.
func (h *Handler) ConfirmOrder(ctx context.Context, cmd ConfirmOrder) (bool, error) {
	return h.store.ConfirmOrder(ctx, cmd.OrderID)
}

// SetRole switches the viewer role; admin requires an eligible session.
// The stored role belongs to the admins, so shoppers never write it.
func (h *Handler) SetRole(ctx context.Context, cmd SetRole) (boutique.Role, error) {
	role, err := boutique.ParseRole(cmd.Role)
	if err != nil {
		return "", err
	}
	if !cmd.IsAdmin {
		if role == boutique.RoleAdmin {
			return "", boutique.ErrForbidden
		}
		return role, nil
	}
	if err := h.store.SetRole(ctx, role, cmd.IsAdmin); err != nil {
		return "", err
	}
	return role, nil
}

// TelegramHandle renders a platform username as "@name".
func TelegramHandle(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return GuestHandle
	}
	return "@" + username
}

// FormatCoordinates renders a geolocation fix as "lat, lon".
func FormatCoordinates(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
}

func normalizeProduct(p product.Product) product.Product {
	p = p.Clone()
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Size = strings.TrimSpace(p.Size)
	images := p.Images[:0:0]
	for _, img := range p.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	p.Images = images
	return p
}
