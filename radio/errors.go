package radio

import "errors"

var (
	ErrTimeout         = errors.New("radio: receive timeout")
	ErrInvalidFrame    = errors.New("radio: invalid frame")
	ErrInvalidBand     = errors.New("radio: invalid frequency band")
	ErrPayloadTooLarge = errors.New("radio: payload too large")
	ErrClosed          = errors.New("radio: driver closed")
	ErrNotConfigured   = errors.New("radio: not configured")
)
