package service

import "errors"

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to check out")
	ErrInvalidStatus = errors.New("unknown status value")
	// ErrGatewayCall wraps a remote gateway failure. On session creation the
	// order stays PENDING with no session handle: the attempt is recorded,
	// not rolled back.
	ErrGatewayCall = errors.New("payment gateway call failed")
)
