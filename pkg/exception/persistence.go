package exception

import "errors"

// Persistence errors
var (
	ErrRecordNotFound    = errors.New("persistence: record not found")
	ErrIntegrityConflict = errors.New("persistence: conflicts with existing data")
	ErrUnknownColumn     = errors.New("persistence: unknown column")
	ErrNoIDs             = errors.New("persistence: no ids provided")
	ErrNilSession        = errors.New("persistence: nil session")
)
