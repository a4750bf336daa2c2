package api

// PollKind identifies which of the four poll-outcome shapes a
// PollOutcome holds.
type PollKind string

const (
	PollRunning   PollKind = "Running"
	PollSucceeded PollKind = "Succeeded"
	PollFailed    PollKind = "Failed"
	PollDied      PollKind = "Died"
)

// PollOutcome is the terminal result of a poll, once it is no longer
// Running: either a user-level success or failure value, or an executor
// death. A *PollOutcome of nil (returned alongside a nil error) from
// Executor.Poll means the flow is still Running — see spec §4.3.
type PollOutcome struct {
	Kind  PollKind
	Value DynamicValue  // set when Kind is Succeeded or Failed
	Err   ExecutorError // set when Kind is Died
}

// Succeeded builds a Succeeded poll outcome.
func Succeeded(v DynamicValue) *PollOutcome {
	return &PollOutcome{Kind: PollSucceeded, Value: v}
}

// Failed builds a Failed poll outcome.
func Failed(v DynamicValue) *PollOutcome {
	return &PollOutcome{Kind: PollFailed, Value: v}
}

// Died builds a Died poll outcome.
func Died(err ExecutorError) *PollOutcome {
	return &PollOutcome{Kind: PollDied, Err: err}
}
