package api

import "github.com/google/uuid"

// FlowId identifies a running (or finished) flow instance.
//
// It is opaque to callers: generated by the server, never parsed.
type FlowId string

// TemplateId identifies a stored template. Unlike FlowId, it is supplied
// by the client.
type TemplateId string

// PromiseId identifies the durable promise that eventually carries a
// flow's terminal result. In this design it is derived one-to-one from a
// FlowId; see PromiseIdForFlow.
type PromiseId string

// NewFlowID generates a fresh, collision-resistant FlowId.
func NewFlowID() FlowId {
	return FlowId(uuid.NewString())
}

// PromiseIdForFlow derives the PromiseId that backs the given FlowId's
// durable result.
func PromiseIdForFlow(id FlowId) PromiseId {
	return PromiseId("promise:" + string(id))
}
