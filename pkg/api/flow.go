package api

import (
	"bytes"
	"encoding/json"
)

// FlowKind identifies the shape of a Flow node.
//
// The real flow expression language is an external collaborator (see
// spec §1): this package only needs enough concrete shapes to carry a
// flow through serialization, equality, and the executor lifecycle
// contract. Succeed/Fail/Die model the three terminal outcomes a poll
// can observe; Provide models binding a typed parameter into a flow (or
// template) before it runs.
type FlowKind string

const (
	FlowSucceed FlowKind = "Succeed"
	FlowFail    FlowKind = "Fail"
	FlowDie     FlowKind = "Die"
	FlowProvide FlowKind = "Provide"
)

// Flow is an opaque, serializable description of a computation. Flow
// values carry three erased type parameters (environment, error,
// success) per spec §3; this concrete representation keeps only what
// the core needs: a self-describing payload and structural equality.
type Flow struct {
	Kind FlowKind `json:"kind"`

	// Set when Kind is Succeed or Fail.
	Value *DynamicValue `json:"value,omitempty"`

	// Set when Kind is Die.
	Err *EncodedExecutorError `json:"err,omitempty"`

	// Set when Kind is Provide.
	Inner *Flow         `json:"inner,omitempty"`
	Param *DynamicValue `json:"param,omitempty"`
}

// Succeed builds a flow that resolves immediately with a success value.
func Succeed(v DynamicValue) Flow {
	return Flow{Kind: FlowSucceed, Value: &v}
}

// Fail builds a flow that resolves immediately with a user-level failure
// value.
func Fail(v DynamicValue) Flow {
	return Flow{Kind: FlowFail, Value: &v}
}

// Die builds a flow that resolves immediately as an executor death.
func Die(err ExecutorError) Flow {
	enc := EncodeExecutorError(err)
	return Flow{Kind: FlowDie, Err: &enc}
}

// Provide binds a parameter into f, returning a new flow. This is what
// the HTTP façade calls when a client supplies a parameter for an inline
// flow or a parameterized template (spec §4.5 step 2).
func (f Flow) Provide(param DynamicValue) Flow {
	inner := f
	return Flow{Kind: FlowProvide, Inner: &inner, Param: &param}
}

// Equal reports whether two flows are structurally identical: the same
// node shape, recursively. Equality is defined on the serialized form
// (spec §9), implemented here via JSON marshaling; record fields are
// marshaled in sorted key order, so field ordering never causes a false
// negative. A nil and an empty byte slice (or record field map) marshal
// differently, so flows differing only in that compare unequal.
func (f Flow) Equal(other Flow) bool {
	a, errA := json.Marshal(f)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}
