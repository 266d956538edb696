package core

import "errors"

var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("token has expired")
	ErrMalformedChallenge   = errors.New("malformed challenge")
	ErrUnsupportedNetwork   = errors.New("unsupported wallet network")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrAddressAlreadyLinked = errors.New("wallet address is already linked to an account")
	ErrAccountNotFound      = errors.New("account not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrUnsupportedFlow      = errors.New("unsupported verification flow")
	ErrDisplayNameTaken     = errors.New("display name is already taken")
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// IsClientError reports whether err belongs to the client-facing taxonomy
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidToken,
		ErrExpiredToken,
		ErrMalformedChallenge,
		ErrUnsupportedNetwork,
		ErrInvalidSignature,
		ErrAddressAlreadyLinked,
		ErrAccountNotFound,
		ErrSessionNotFound,
		ErrUnsupportedFlow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
