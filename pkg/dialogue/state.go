package dialogue

// State is the position of the round state machine.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateAwaitingQuestion
	StateAwaitingResponse
	StateCompleting
	// StateHalted is final for the session: terminated or failed.
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateAwaitingQuestion:
		return "awaiting-question"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateCompleting:
		return "completing"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Status is the host-facing summary of a session.
type Status string

const (
	// StatusIdle means automation was never started in this session.
	StatusIdle       Status = "idle"
	StatusActive     Status = "active"
	StatusStopped    Status = "stopped"
	StatusTerminated Status = "terminated"
	StatusFailed     Status = "failed"
)

// Outcome reports what a call into the controller did.
type Outcome int

const (
	// OutcomeCompleted: both turns were appended.
	OutcomeCompleted Outcome = iota
	// OutcomeTerminated: the round completed and the responder ended the dialogue.
	OutcomeTerminated
	// OutcomeDiscarded: automation was stopped while the seeker was thinking,
	// so the question was dropped.
	OutcomeDiscarded
	OutcomeFailed
	// OutcomeSkipped: a scheduled round found its preconditions gone.
	OutcomeSkipped
	// OutcomeRejected: a policy no-op (busy, automation active, terminated...).
	OutcomeRejected
	// OutcomeStarted: Launch admitted the start; the first round is running.
	OutcomeStarted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTerminated:
		return "terminated"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRejected:
		return "rejected"
	case OutcomeStarted:
		return "started"
	default:
		return "unknown"
	}
}

// Reasons attached to rejected operations.
const (
	ReasonBusy             = "a round is in flight"
	ReasonAutomationActive = "automation is active"
	ReasonTerminated       = "dialogue has terminated"
	ReasonFailed           = "automation is disabled after a failure"
	ReasonBlank            = "message is blank"
	ReasonNotActive        = "automation is not active"
)
