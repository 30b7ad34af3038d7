package boutique

import "errors"

var (
	ErrDuplicateProduct = errors.New("a product with this id already exists")
	ErrForbidden        = errors.New("admin role is not allowed for this user")
	ErrInvalidRole      = errors.New("role must be user or admin")
	ErrStateExists      = errors.New("state already saved under this key")
)
