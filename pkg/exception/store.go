package exception

import (
	"errors"
	"fmt"
)

// Store errors
var (
	ErrUnknownMarket = errors.New("store: unknown market")
	ErrUnknownStat   = errors.New("store: unknown stat")
	ErrUnknownField  = errors.New("store: unknown candle field")
	ErrEmptyMarkets  = errors.New("store: empty market list")

	// ErrWindowLength is also an ErrInvalidArgument.
	ErrWindowLength = fmt.Errorf("store: close price window length mismatch: %w", ErrInvalidArgument)
)
