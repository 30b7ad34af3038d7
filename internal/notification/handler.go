package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"go.uber.org/zap"
)

// Mailer sends the owner's order mails. *email.Service satisfies it.
type Mailer interface {
	SendNewOrder(to string, o order.Order) error
	SendOrderConfirmed(to string, e order.OrderConfirmed) error
}

// Handler turns order events into mails to the shop owner.
type Handler struct {
	mailer Mailer
	to     string
	log    *zap.Logger
}

// NewHandler creates a handler mailing ownerEmail.
func NewHandler(mailer Mailer, ownerEmail string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{mailer: mailer, to: ownerEmail, log: log}
}

// HandleMessage processes a raw event from Kafka
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.Warn("failed to unmarshal event", zap.ByteString("key", key), zap.Error(err))
		return err
	}
	return h.HandleEvent(ctx, event)
}

// HandleEvent mails on OrderPlaced and OrderConfirmed and ignores the rest.
func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case order.EventOrderConfirmed:
		return h.handleOrderConfirmed(event)
	default:
		return nil
	}
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	if err := h.mailer.SendNewOrder(h.to, e.Order); err != nil {
		h.log.Error("failed to send new order mail", zap.String("order_id", e.Order.ID), zap.Error(err))
		return err
	}
	h.log.Info("new order mail sent", zap.String("order_id", e.Order.ID), zap.Float64("total", e.Order.TotalPrice))
	return nil
}

func (h *Handler) handleOrderConfirmed(event store.Event) error {
	var e order.OrderConfirmed
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	if err := h.mailer.SendOrderConfirmed(h.to, e); err != nil {
		h.log.Error("failed to send confirmation mail", zap.String("order_id", e.OrderID), zap.Error(err))
		return err
	}
	h.log.Info("confirmation mail sent", zap.String("order_id", e.OrderID))
	return nil
}
