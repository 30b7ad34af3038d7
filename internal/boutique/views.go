package boutique

import (
	"strings"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
)

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Storefront lists what shoppers may buy: products in stock, in the given
// section (all sections when empty), matching query.
func (s *Store) Storefront(section product.Section, query string) []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []product.Product{}
	for _, p := range s.state.Products {
		if !p.InStock() {
			continue
		}
		if section != "" && p.Section != section {
			continue
		}
		if !p.Matches(query) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// Products lists the whole catalog, including sold out items, filtered by
// id substring.
func (s *Store) Products(idFilter string) []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []product.Product{}
	for _, p := range s.state.Products {
		if idFilter != "" && !strings.Contains(strings.ToLower(p.ID), strings.ToLower(idFilter)) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// Product returns the first product with the given id.
func (s *Store) Product(id string) (product.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.state.Products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return product.Product{}, false
}

// Orders returns all orders in the order they were placed.
func (s *Store) Orders() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.Order, len(s.state.Orders))
	for i, o := range s.state.Orders {
		out[i] = o.Clone()
	}
	return out
}

func (s *Store) Order(id string) (order.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.state.Orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return order.Order{}, false
}

func (s *Store) Promos() []promo.PromoCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]promo.PromoCode{}, s.state.Promos...)
}

// FindPromo looks a code up case-insensitively; the first match wins.
func (s *Store) FindPromo(code string) (promo.PromoCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return promo.Find(s.state.Promos, code)
}

func (s *Store) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentUser.Role
}
