package exception

import "errors"

// Shared memory errors
var (
	// ErrSegmentExists is returned when an exclusive create finds a segment
	// with the same name. The owner create path reclaims it once.
	ErrSegmentExists = errors.New("shm: segment already exists")

	// ErrSegmentNotFound is returned when attaching to a segment that has
	// not been created, usually because the producer is not running or the
	// names differ between deployments.
	ErrSegmentNotFound = errors.New("shm: segment not found")

	// ErrSegmentShape is returned when the segment byte size does not match
	// rows*cols*8 of the attaching side.
	ErrSegmentShape = errors.New("shm: segment shape mismatch")

	// ErrWriteOnReader is returned by every mutator of a reader handle.
	ErrWriteOnReader = errors.New("shm: write on reader")

	// ErrOwnerActive is returned when another live process holds the owner
	// lock of a segment.
	ErrOwnerActive = errors.New("shm: segment owned by a live process")

	// ErrSegmentClosed is returned when a closed region is used.
	ErrSegmentClosed = errors.New("shm: segment closed")

	ErrEmptySegmentName = errors.New("shm: empty segment name")
	ErrInvalidShape     = errors.New("shm: rows and cols must be > 0")
)
