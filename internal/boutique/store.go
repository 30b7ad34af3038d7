package boutique

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store holds the catalog, orders and promo codes. Every mutation builds
// the next state, saves it, and only then makes it visible. A failed save
// leaves the previous state in place.
type Store struct {
	mu      sync.RWMutex
	state   AppState
	backend store.StateStore
	key     string
	sink    store.EventSink
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

// Open loads the state saved under key, or starts from an empty state when
// nothing was saved yet. sink may be nil.
func Open(ctx context.Context, backend store.StateStore, key string, sink store.EventSink, log *zap.Logger) (*Store, error) {
	if key == "" {
		key = store.DefaultStateKey
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		backend: backend,
		key:     key,
		sink:    sink,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}

	data, found, err := backend.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load state %q: %w", key, err)
	}
	if !found {
		s.state = NewState()
		log.Info("no saved state, starting empty", zap.String("key", key))
		return s, nil
	}

	state, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.state = state
	log.Info("state loaded",
		zap.String("key", key),
		zap.Int("products", len(state.Products)),
		zap.Int("orders", len(state.Orders)),
		zap.Int("promos", len(state.Promos)),
	)
	return s, nil
}

// pendingEvent is appended to the sink once the store lock is released.
type pendingEvent struct {
	aggregateID   string
	aggregateType string
	eventType     string
	data          any
}

// commit saves next and swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next AppState) error {
	data, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.state = next.normalized()
	return nil
}

func (s *Store) publish(ctx context.Context, e pendingEvent) {
	if s.sink == nil {
		return
	}
	if _, err := s.sink.Append(ctx, e.aggregateID, e.aggregateType, e.eventType, e.data); err != nil {
		s.log.Warn("failed to publish event",
			zap.String("event_type", e.eventType),
			zap.String("aggregate_id", e.aggregateID),
			zap.Error(err),
		)
	}
}

// AddProduct appends p to the catalog. Ids must be unique.
func (s *Store) AddProduct(ctx context.Context, p product.Product) error {
	s.mu.Lock()
	for _, existing := range s.state.Products {
		if existing.ID == p.ID {
			s.mu.Unlock()
			return ErrDuplicateProduct
		}
	}

	next := s.state
	next.Products = make([]product.Product, 0, len(s.state.Products)+1)
	next.Products = append(next.Products, s.state.Products...)
	next.Products = append(next.Products, p.Clone())

	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, pendingEvent{p.ID, product.AggregateType, product.EventProductAdded, product.ProductAdded{Product: p}})
	return nil
}

// DeleteProduct removes every product with the given id and returns how many
// were removed. Removing nothing does not touch the backend.
func (s *Store) DeleteProduct(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	kept := make([]product.Product, 0, len(s.state.Products))
	for _, p := range s.state.Products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	removed := len(s.state.Products) - len(kept)
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	next := s.state
	next.Products = kept
	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	s.publish(ctx, pendingEvent{id, product.AggregateType, product.EventProductDeleted, product.ProductDeleted{ProductID: id, Removed: removed}})
	return removed, nil
}

// UpdateProduct replaces the product whose id equals p.ID. It reports false,
// without saving, when there is no such product.
func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (bool, error) {
	s.mu.Lock()
	products := make([]product.Product, len(s.state.Products))
	matched := false
	for i, existing := range s.state.Products {
		if existing.ID == p.ID {
			products[i] = p.Clone()
			matched = true
			continue
		}
		products[i] = existing
	}
	if !matched {
		s.mu.Unlock()
		return false, nil
	}

	next := s.state
	next.Products = products
	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	s.publish(ctx, pendingEvent{p.ID, product.AggregateType, product.EventProductUpdated, product.ProductUpdated{Product: p}})
	return true, nil
}

// AddPromo appends p. Codes are not checked for uniqueness.
func (s *Store) AddPromo(ctx context.Context, p promo.PromoCode) error {
	s.mu.Lock()
	next := s.state
	next.Promos = make([]promo.PromoCode, 0, len(s.state.Promos)+1)
	next.Promos = append(next.Promos, s.state.Promos...)
	next.Promos = append(next.Promos, p)

	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, pendingEvent{p.Code, promo.AggregateType, promo.EventPromoAdded, promo.PromoAdded{Promo: p}})
	return nil
}

// PlaceOrder records o as pending. Product quantities are not touched until
// the order is confirmed.
func (s *Store) PlaceOrder(ctx context.Context, o order.Order) (order.Order, error) {
	o = o.Clone()
	o.Status = order.StatusPending
	o.ConfirmedAt = nil
	if o.ID == "" {
		o.ID = s.newID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}

	s.mu.Lock()
	next := s.state
	next.Orders = make([]order.Order, 0, len(s.state.Orders)+1)
	next.Orders = append(next.Orders, s.state.Orders...)
	next.Orders = append(next.Orders, o)

	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return order.Order{}, err
	}

	s.publish(ctx, pendingEvent{o.ID, order.AggregateType, order.EventOrderPlaced, order.OrderPlaced{Order: o}})
	return o.Clone(), nil
}

// ConfirmOrder commits a pending order: each ordered product loses the
// ordered quantity, floored at zero, and the order becomes confirmed.
// Unknown and already confirmed orders are left alone and false is returned.
func (s *Store) ConfirmOrder(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	idx := -1
	for i, o := range s.state.Orders {
		if o.ID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 || !s.state.Orders[idx].IsPending() {
		s.mu.Unlock()
		return false, nil
	}

	target := s.state.Orders[idx]
	now := s.now()

	var changes []order.StockChange
	products := make([]product.Product, len(s.state.Products))
	for i, p := range s.state.Products {
		if qty, ok := target.QuantityFor(p.ID); ok {
			before := p.Quantity
			p.Quantity = max(0, p.Quantity-qty)
			changes = append(changes, order.StockChange{ProductID: p.ID, Before: before, After: p.Quantity})
		}
		products[i] = p
	}

	confirmed := target.Clone()
	confirmed.Status = order.StatusConfirmed
	confirmed.ConfirmedAt = &now

	orders := make([]order.Order, len(s.state.Orders))
	copy(orders, s.state.Orders)
	orders[idx] = confirmed

	next := s.state
	next.Products = products
	next.Orders = orders
	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	s.publish(ctx, pendingEvent{orderID, order.AggregateType, order.EventOrderConfirmed, order.OrderConfirmed{
		OrderID:      orderID,
		UserName:     confirmed.UserName,
		UserTelegram: confirmed.UserTelegram,
		TotalPrice:   confirmed.TotalPrice,
		Stock:        changes,
		ConfirmedAt:  now,
	}})
	return true, nil
}

// SetRole switches the viewer role. Admin is refused unless isAdmin.
func (s *Store) SetRole(ctx context.Context, role Role, isAdmin bool) error {
	role, err := ParseRole(string(role))
	if err != nil {
		return err
	}
	if role == RoleAdmin && !isAdmin {
		return ErrForbidden
	}

	s.mu.Lock()
	if s.state.CurrentUser.Role == role {
		s.mu.Unlock()
		return nil
	}
	next := s.state
	next.CurrentUser = CurrentUser{Role: role}
	err = s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, pendingEvent{s.key, AggregateType, EventRoleChanged, RoleChanged{Role: role}})
	return nil
}
