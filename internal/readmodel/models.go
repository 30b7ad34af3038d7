package readmodel

// Stats is the admin dashboard summary.
type Stats struct {
	Products        int     `json:"products"`
	OutOfStock      int     `json:"out_of_stock"`
	PendingOrders   int     `json:"pending_orders"`
	ConfirmedOrders int     `json:"confirmed_orders"`
	TotalOrders     int     `json:"total_orders"`
	Revenue         float64 `json:"revenue"`
	Customers       int     `json:"customers"`
	Promos          int     `json:"promos"`
}

// PromoQuote is the result of applying a promo code to a cart subtotal.
type PromoQuote struct {
	Code               string  `json:"code"`
	DiscountPercentage int     `json:"discountPercentage"`
	Subtotal           float64 `json:"subtotal"`
	Total              float64 `json:"total"`
}

// Session describes the caller as seen by the mini-app.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	Role     string `json:"role"`
}
