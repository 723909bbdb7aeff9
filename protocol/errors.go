package protocol

import "errors"

var (
	ErrMalformedPacket = errors.New("malformed packet")
	ErrInvalidKey      = errors.New("button key must be a single byte character")
	ErrTooManyKeys     = errors.New("too many button keys (max 255)")
)
