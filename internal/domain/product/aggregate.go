package product

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const AggregateType = "Product"

// MaxImages is the number of photos the admin wizard keeps per product.
const MaxImages = 4

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidID       = errors.New("product id is required")
	ErrNoImages        = errors.New("at least one image is required")
	ErrTooManyImages   = fmt.Errorf("at most %d images are allowed", MaxImages)
	ErrInvalidImage    = errors.New("image must be an http(s) URL or an inline data:image URL")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrInvalidSection  = errors.New("section must be sale or rental")
)

// Section partitions the catalog. For rental items Price is an hourly rate.
type Section string

const (
	SectionSale   Section = "sale"
	SectionRental Section = "rental"
)

// legacySections maps the values stored by the first storefront release.
var legacySections = map[string]Section{
	"sotish": SectionSale,
	"prokat": SectionRental,
}

// ParseSection accepts both current and legacy section names.
func ParseSection(s string) (Section, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch Section(v) {
	case SectionSale, SectionRental:
		return Section(v), nil
	}
	if sec, ok := legacySections[v]; ok {
		return sec, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSection, s)
}

func (s Section) Valid() bool {
	return s == SectionSale || s == SectionRental
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	sec, err := ParseSection(raw)
	if err != nil {
		return err
	}
	*s = sec
	return nil
}

// Product is a catalog entry. ID is entered by the shop owner and is not
// generated.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Quantity    int      `json:"quantity"`
	Section     Section  `json:"section"`
	Size        string   `json:"size"`
	Price       float64  `json:"price"`
}

// InStock reports whether shoppers may see the product.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// Matches reports whether query is a case-insensitive substring of the
// name or a substring of the id.
func (p Product) Matches(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) ||
		strings.Contains(p.ID, query)
}

// Clone returns a copy that does not share the Images slice.
func (p Product) Clone() Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}

// Validate applies the rules the admin wizard enforces before a product can
// be saved.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidID
	}
	if len(p.Images) == 0 {
		return ErrNoImages
	}
	if len(p.Images) > MaxImages {
		return ErrTooManyImages
	}
	for _, img := range p.Images {
		if !validImageRef(img) {
			return ErrInvalidImage
		}
	}
	if p.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if !p.Section.Valid() {
		return ErrInvalidSection
	}
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

func validImageRef(ref string) bool {
	switch {
	case strings.HasPrefix(ref, "data:image/"):
		return strings.Contains(ref, ",")
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return len(ref) > len("https://")
	}
	return false
}
