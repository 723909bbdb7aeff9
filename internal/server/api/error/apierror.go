// Package apierror builds problem values for packages that sit below the
// api server, such as the handshake, where importing api would cycle.
package apierror

import "github.com/mcbrc/rcrx/apitypes"

const handshakeFailed = "invalid password"

func ErrUnauthorized(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}

// ErrHandshake is reported by both ends when the key proofs disagree.
func ErrHandshake() apitypes.ApiError {
	return ErrUnauthorized(handshakeFailed)
}
