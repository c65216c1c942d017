package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrMissingAddress    = errors.New("shipping and billing address are required")
	ErrMissingSubject    = errors.New("credential carries no customer identifier")
	ErrStale             = errors.New("checkout was reset while the order was in flight")
)
