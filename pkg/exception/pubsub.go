package exception

import "errors"

// Pub/sub errors
var (
	ErrEmptyChannel = errors.New("pubsub: empty channel")
	ErrNilClient    = errors.New("pubsub: nil client")
)
