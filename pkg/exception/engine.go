package exception

import "errors"

// Engine errors
var (
	ErrEngineAlreadyStarted = errors.New("engine: already started")
	ErrEngineNotRunning     = errors.New("engine: not running")
	ErrWorkerNotRegistered  = errors.New("engine: worker not registered")
	ErrWorkerPanic          = errors.New("engine: worker panic")
	ErrWorkerExit           = errors.New("engine: worker exited abnormally")
	ErrNilWorker            = errors.New("engine: nil worker")
	ErrUnknownMode          = errors.New("engine: unknown concurrency mode")
)
