package email

import (
	"fmt"

	"github.com/example/mavi-boutique/internal/domain/order"
	"gopkg.in/gomail.v2"
)

// Dialer sends composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service sends order mails over SMTP
type Service struct {
	dialer Dialer
	from   string
}

// NewService creates an SMTP-backed service. Port 465 uses implicit TLS.
func NewService(host string, port int, user, password, from string) *Service {
	d := gomail.NewDialer(host, port, user, password)
	d.SSL = port == 465
	return NewServiceWithDialer(d, from)
}

func NewServiceWithDialer(d Dialer, from string) *Service {
	return &Service{dialer: d, from: from}
}

// SendNewOrder tells the owner about a freshly placed order.
func (s *Service) SendNewOrder(to string, o order.Order) error {
	body, err := BuildNewOrderBody(o)
	if err != nil {
		return fmt.Errorf("render new order mail: %w", err)
	}
	subject := fmt.Sprintf("Yangi buyurtma #%s: %s", shortID(o.ID), FormatUZS(o.TotalPrice))
	return s.send(to, subject, body)
}

// SendOrderConfirmed reports a confirmed order and its stock changes.
func (s *Service) SendOrderConfirmed(to string, e order.OrderConfirmed) error {
	body, err := BuildOrderConfirmedBody(e)
	if err != nil {
		return fmt.Errorf("render confirmation mail: %w", err)
	}
	subject := fmt.Sprintf("Buyurtma #%s tasdiqlandi", shortID(e.OrderID))
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
