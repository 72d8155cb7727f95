package session

// State is the phase of a dictation session. A session never moves
// backward: each state is visited at most once between activation and the
// terminal return to idle.
type State int

const (
	StateIdle State = iota
	StateArming
	StateRecording
	StateVerifying
	StateTranscribing
	StateFormatting
	StateDelivering
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArming:
		return "arming"
	case StateRecording:
		return "recording"
	case StateVerifying:
		return "verifying"
	case StateTranscribing:
		return "transcribing"
	case StateFormatting:
		return "formatting"
	case StateDelivering:
		return "delivering"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind classifies terminal session failures.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureSpeakerMismatch   FailureKind = "speaker_mismatch"
	FailureVerification      FailureKind = "verification_failed"
	FailureEngineUnavailable FailureKind = "engine_unavailable"
	FailureEngine            FailureKind = "engine_failed"
	FailureTimeout           FailureKind = "timeout"
)

// Outcome values reported to the completion hook and metrics.
const (
	OutcomeDelivered  = "delivered"
	OutcomeShortAudio = "short_audio"
	OutcomeCanceled   = "canceled"
	OutcomeTimedOut   = "timed_out"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)
