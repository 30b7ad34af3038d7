package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/mavi-boutique/internal/domain/product"
)

const AggregateType = "Order"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	// StatusCancelled is a valid stored value; no operation produces it.
	StatusCancelled Status = "cancelled"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyOrder         = errors.New("order must have at least one item")
	ErrInvalidOrderType   = errors.New("order type must be delivery or reservation")
	ErrMissingCustomer    = errors.New("name, phone and location are required")
	ErrInvalidOrderAmount = errors.New("order quantity must be positive")
)

// Type tells whether the customer wants the item delivered or reserved for
// pickup/fitting.
type Type string

const (
	TypeDelivery    Type = "delivery"
	TypeReservation Type = "reservation"
)

var legacyTypes = map[string]Type{
	"dostavka":    TypeDelivery,
	"band_qilish": TypeReservation,
}

// ParseType accepts both current and legacy order type names.
func ParseType(s string) (Type, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch Type(v) {
	case TypeDelivery, TypeReservation:
		return Type(v), nil
	}
	if t, ok := legacyTypes[v]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, s)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = ""
		return nil
	}
	parsed, err := ParseType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CartItem is a product snapshot taken at checkout plus the ordered amount.
// Price and images are frozen; stock is not reserved.
type CartItem struct {
	product.Product
	OrderQuantity int `json:"orderQuantity"`
}

// LineTotal is price times ordered quantity.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.OrderQuantity)
}

type Order struct {
	ID           string     `json:"id"`
	UserName     string     `json:"userName"`
	Phone        string     `json:"phone"`
	Location     string     `json:"location"`
	Items        []CartItem `json:"items"`
	TotalPrice   float64    `json:"totalPrice"`
	Status       Status     `json:"status"`
	OrderType    Type       `json:"orderType"`
	UserTelegram string     `json:"userTelegram"`
	UserID       string     `json:"userId,omitempty"`
	PromoCode    string     `json:"promoCode,omitempty"`
	CreatedAt    time.Time  `json:"createdAt,omitzero"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
}

// GuestHandle is recorded on orders placed without a platform username.
const GuestHandle = "@guest"

// CustomerKey identifies who placed the order: the platform user id, then
// the Telegram handle, then the phone number for guests. Empty when none
// of them is known.
func (o Order) CustomerKey() string {
	if id := strings.TrimSpace(o.UserID); id != "" {
		return "id:" + id
	}
	if handle := strings.ToLower(strings.TrimSpace(o.UserTelegram)); handle != "" && handle != GuestHandle {
		return "tg:" + handle
	}
	phone := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, o.Phone)
	if phone != "" {
		return "phone:" + phone
	}
	return ""
}

func (o Order) IsPending() bool {
	return o.Status == StatusPending
}

// QuantityFor returns the ordered quantity of the first item with the given
// product id.
func (o Order) QuantityFor(productID string) (int, bool) {
	for _, item := range o.Items {
		if item.ID == productID {
			return item.OrderQuantity, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	if o.Items != nil {
		items := make([]CartItem, len(o.Items))
		for i, item := range o.Items {
			items[i] = CartItem{Product: item.Product.Clone(), OrderQuantity: item.OrderQuantity}
		}
		o.Items = items
	}
	if o.ConfirmedAt != nil {
		at := *o.ConfirmedAt
		o.ConfirmedAt = &at
	}
	return o
}
