package boutique

import (
	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/readmodel"
	"github.com/shopspring/decimal"
)

// Stats summarizes the state for the admin dashboard. Revenue sums the
// totals of all orders, pending ones included. Customers are counted by
// Order.CustomerKey, so guests are told apart by phone.
func (s *Store) Stats() readmodel.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := readmodel.Stats{
		Products:    len(s.state.Products),
		TotalOrders: len(s.state.Orders),
		Promos:      len(s.state.Promos),
	}
	for _, p := range s.state.Products {
		if !p.InStock() {
			st.OutOfStock++
		}
	}

	revenue := decimal.Zero
	customers := make(map[string]struct{})
	for _, o := range s.state.Orders {
		switch o.Status {
		case order.StatusPending:
			st.PendingOrders++
		case order.StatusConfirmed:
			st.ConfirmedOrders++
		}
		revenue = revenue.Add(decimal.NewFromFloat(o.TotalPrice))
		if key := o.CustomerKey(); key != "" {
			customers[key] = struct{}{}
		}
	}
	st.Revenue = revenue.InexactFloat64()
	st.Customers = len(customers)
	return st
}
