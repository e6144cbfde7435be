package auth

import "errors"

// Token validation errors. The auth middleware maps each to a 401.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	// ErrWrongTokenType is returned for a well-signed token minted for another purpose.
	ErrWrongTokenType = errors.New("wrong token type")
)
