package boutique

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
)

// Role is the viewer role last selected in the mini-app.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type CurrentUser struct {
	Role Role `json:"role"`
}

// AppState is the unit of persistence: the whole value is written after
// every mutation.
type AppState struct {
	Products    []product.Product `json:"products"`
	Orders      []order.Order     `json:"orders"`
	Promos      []promo.PromoCode `json:"promos"`
	CurrentUser CurrentUser       `json:"currentUser"`
}

// NewState returns the first-run state: empty collections, role user.
func NewState() AppState {
	return AppState{
		Products:    []product.Product{},
		Orders:      []order.Order{},
		Promos:      []promo.PromoCode{},
		CurrentUser: CurrentUser{Role: RoleUser},
	}
}

// Clone returns a deep copy.
func (s AppState) Clone() AppState {
	out := AppState{
		Products:    make([]product.Product, len(s.Products)),
		Orders:      make([]order.Order, len(s.Orders)),
		Promos:      make([]promo.PromoCode, len(s.Promos)),
		CurrentUser: s.CurrentUser,
	}
	for i, p := range s.Products {
		out.Products[i] = p.Clone()
	}
	for i, o := range s.Orders {
		out.Orders[i] = o.Clone()
	}
	copy(out.Promos, s.Promos)
	return out
}

func (s AppState) normalized() AppState {
	if s.Products == nil {
		s.Products = []product.Product{}
	}
	if s.Orders == nil {
		s.Orders = []order.Order{}
	}
	if s.Promos == nil {
		s.Promos = []promo.PromoCode{}
	}
	if s.CurrentUser.Role == "" {
		s.CurrentUser.Role = RoleUser
	}
	return s
}

// Encode serializes the state. Nil collections are written as [].
func Encode(s AppState) ([]byte, error) {
	data, err := json.Marshal(s.normalized())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode parses a stored blob, including blobs written by the browser-only
// storefront with legacy enum values.
func Decode(data []byte) (AppState, error) {
	var s AppState
	if err := json.Unmarshal(data, &s); err != nil {
		return AppState{}, fmt.Errorf("decode state: %w", err)
	}
	role, err := ParseRole(string(s.CurrentUser.Role))
	if err != nil {
		role = RoleUser
	}
	s.CurrentUser.Role = role
	return s.normalized(), nil
}
