// Package channels holds small generic helpers for fan-out and guarded sends.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
	ErrNilChannel     = errors.New("channel cannot be nil")
)
