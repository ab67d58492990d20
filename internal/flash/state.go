package flash

// Phase is a step of the flash state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseCalculatingChecksum
	PhaseFlashing
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreparing:
		return "preparing"
	case PhaseCalculatingChecksum:
		return "calculatingChecksum"
	case PhaseFlashing:
		return "flashing"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends an operation. A new flash
// may only start from idle, reached via Reset.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// State is the externally observable engine state. Progress is only
// meaningful during checksum and flashing phases; Reason only when
// failed.
type State struct {
	Phase    Phase
	Progress float64
	Reason   string
}
