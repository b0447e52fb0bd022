package engine

// Mode selects the execution context of Worker.Execute.
type Mode uint8

const (
	_mode_beg Mode = iota
	ModeThread
	ModeProcess
	_mode_end
)

func (m Mode) IsAvailable() bool {
	return m > _mode_beg && m < _mode_end
}

func (m Mode) String() string {
	switch m {
	case ModeThread:
		return "thread"
	case ModeProcess:
		return "process"
	default:
		return "unknown"
	}
}

// ParseMode accepts "thread" and "process".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "thread":
		return ModeThread, true
	case "process":
		return ModeProcess, true
	default:
		return _mode_beg, false
	}
}

// State is the lifecycle position of an Engine.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
