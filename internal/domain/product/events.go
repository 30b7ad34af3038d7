package product

const (
	EventProductAdded   = "ProductAdded"
	EventProductUpdated = "ProductUpdated"
	EventProductDeleted = "ProductDeleted"
)

type ProductAdded struct {
	Product Product `json:"product"`
}

type ProductUpdated struct {
	Product Product `json:"product"`
}

// ProductDeleted carries how many catalog rows shared the id.
type ProductDeleted struct {
	ProductID string `json:"product_id"`
	Removed   int    `json:"removed"`
}
