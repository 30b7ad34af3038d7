package order

import "time"

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderConfirmed = "OrderConfirmed"
)

type OrderPlaced struct {
	Order Order `json:"order"`
}

// StockChange records a product quantity before and after confirmation.
type StockChange struct {
	ProductID string `json:"product_id"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
}

type OrderConfirmed struct {
	OrderID      string        `json:"order_id"`
	UserName     string        `json:"user_name"`
	UserTelegram string        `json:"user_telegram"`
	TotalPrice   float64       `json:"total_price"`
	Stock        []StockChange `json:"stock"`
	ConfirmedAt  time.Time     `json:"confirmed_at"`
}
