package command

import "github.com/example/mavi-boutique/internal/domain/product"

// Product Commands
type AddProduct struct {
	product.Product
}

// UpdateProduct carries the full replacement product; ID selects the target.
type UpdateProduct struct {
	product.Product
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

// Promo Commands
type AddPromo struct {
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
}

// Order Commands
type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Checkout turns a shopper's cart into a pending order. Location may be
// left empty when coordinates are given.
type Checkout struct {
	UserName  string         `json:"userName"`
	Phone     string         `json:"phone"`
	Location  string         `json:"location"`
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
	OrderType string         `json:"orderType"`
	Items     []CheckoutItem `json:"items"`
	PromoCode string         `json:"promoCode,omitempty"`

	// Filled from the session, never from the request body.
	UserID   string `json:"-"`
	Username string `json:"-"`
}

type ConfirmOrder struct {
	OrderID string `json:"order_id"`
}

// Session Commands
type SetRole struct {
	Role    string `json:"role"`
	IsAdmin bool   `json:"-"`
}
