package api

// FlowStatus is the lifecycle state of a flow instance, as observed
// through GetAll / the HTTP façade's list endpoint.
//
// The reference executor reports Running, Paused, and Done; the mock
// executor reports Running and Done. Neither produces Suspended, which
// still round-trips through the API.
type FlowStatus string

const (
	FlowRunning   FlowStatus = "Running"
	FlowDone      FlowStatus = "Done"
	FlowPaused    FlowStatus = "Paused"
	FlowSuspended FlowStatus = "Suspended"
)
