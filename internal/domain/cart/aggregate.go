package cart

import (
	"errors"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("not enough items in stock")
	ErrItemNotFound      = errors.New("item is not in the cart")
	ErrInvalidSubtotal   = errors.New("subtotal must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Cart is a shopper's ephemeral basket. It lives for one checkout and is
// never persisted.
type Cart struct {
	items []order.CartItem
}

func New() *Cart {
	return &Cart{}
}

// Add puts qty units of p into the cart. Adding a product that is already
// present replaces its quantity.
func (c *Cart) Add(p product.Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > p.Quantity {
		return ErrInsufficientStock
	}
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i].OrderQuantity = qty
			return nil
		}
	}
	c.items = append(c.items, order.CartItem{Product: p.Clone(), OrderQuantity: qty})
	return nil
}

// Remove drops every line for the product id.
func (c *Cart) Remove(productID string) bool {
	kept := c.items[:0]
	removed := false
	for _, item := range c.items {
		if item.ID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
	return removed
}

// SetQuantity changes a line's quantity, clamped to [1, stock at add time].
func (c *Cart) SetQuantity(productID string, qty int) (int, error) {
	for i := range c.items {
		if c.items[i].ID != productID {
			continue
		}
		qty = max(1, min(qty, c.items[i].Quantity))
		c.items[i].OrderQuantity = qty
		return qty, nil
	}
	return 0, ErrItemNotFound
}

func (c *Cart) Items() []order.CartItem {
	out := make([]order.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Subtotal() float64 {
	return Subtotal(c.items)
}

// Total is the subtotal after a percentage discount; 0 means no promo.
func (c *Cart) Total(discountPercentage int) float64 {
	return ApplyDiscount(c.Subtotal(), discountPercentage)
}

// Subtotal sums price x orderQuantity over items.
func Subtotal(items []order.CartItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.OrderQuantity)))
		sum = sum.Add(line)
	}
	return sum.InexactFloat64()
}

// ApplyDiscount returns subtotal x (1 - pct/100), rounded to two decimals.
// A zero percentage returns subtotal unchanged.
func ApplyDiscount(subtotal float64, pct int) float64 {
	if pct <= 0 {
		return subtotal
	}
	pct = min(pct, 100)
	keep := hundred.Sub(decimal.NewFromInt(int64(pct)))
	return decimal.NewFromFloat(subtotal).Mul(keep).Div(hundred).Round(2).InexactFloat64()
}
