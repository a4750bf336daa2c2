package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ExecutorError is the closed sum type carried by a Died poll outcome.
// Implementations are comparable structs so they round-trip through JSON
// via the flow result codec (see internal/codec).
type ExecutorError interface {
	error
	// Tag is the stable JSON key this variant encodes under, e.g.
	// "MissingVariable".
	Tag() string
}

// MissingVariable reports that a flow referenced a variable that was
// never bound.
type MissingVariable struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

func (e MissingVariable) Error() string {
	return fmt.Sprintf("missing variable %q in %q", e.Name, e.Context)
}

func (MissingVariable) Tag() string { return "MissingVariable" }

// InvalidOperationArguments reports that a lifecycle operation
// (start/pause/resume/abort/delete) was called with arguments the
// executor cannot act on — most notably, deleting a flow that is still
// running.
type InvalidOperationArguments struct {
	Msg string `json:"msg"`
}

func (e InvalidOperationArguments) Error() string { return e.Msg }

func (InvalidOperationArguments) Tag() string { return "InvalidOperationArguments" }

// Aborted reports that a flow was asked to abort before it reached a
// terminal state on its own. It is one of the "additional variants
// reserved for future use" spec.md anticipates.
type Aborted struct{}

func (Aborted) Error() string { return "flow aborted" }

func (Aborted) Tag() string { return "Aborted" }

// NewInvalidOperationArguments is a convenience constructor.
func NewInvalidOperationArguments(msg string) InvalidOperationArguments {
	return InvalidOperationArguments{Msg: msg}
}

// IsInvalidOperationArguments reports whether err is (or wraps) an
// InvalidOperationArguments, the one executor error that the HTTP façade
// maps to 400 instead of 500.
func IsInvalidOperationArguments(err error) (InvalidOperationArguments, bool) {
	var ioa InvalidOperationArguments
	if errors.As(err, &ioa) {
		return ioa, true
	}
	return InvalidOperationArguments{}, false
}

// EncodedExecutorError is the storage shape of an ExecutorError: the
// variant's Tag paired with that variant's JSON-marshaled fields. A Flow
// of kind Die carries it as is; internal/codec renders it as the
// single-key {"<Tag>": fields} object a Died poll outcome serializes to
// (spec §6).
type EncodedExecutorError struct {
	Tag    string          `json:"tag"`
	Fields json.RawMessage `json:"fields"`
}

// EncodeExecutorError captures err's tag and fields for storage/transport.
func EncodeExecutorError(err ExecutorError) EncodedExecutorError {
	fields, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		fields = json.RawMessage("{}")
	}
	return EncodedExecutorError{Tag: err.Tag(), Fields: fields}
}

// DecodeExecutorError reconstructs the concrete ExecutorError variant
// named by enc.Tag. Unknown tags decode to a generic
// InvalidOperationArguments carrying the raw fields as its message, so
// a forward-compatible client never sees a decode failure for a reserved
// future variant.
func DecodeExecutorError(enc EncodedExecutorError) (ExecutorError, error) {
	switch enc.Tag {
	case (MissingVariable{}).Tag():
		var mv MissingVariable
		if err := json.Unmarshal(enc.Fields, &mv); err != nil {
			return nil, err
		}
		return mv, nil
	case (InvalidOperationArguments{}).Tag():
		var ioa InvalidOperationArguments
		if err := json.Unmarshal(enc.Fields, &ioa); err != nil {
			return nil, err
		}
		return ioa, nil
	case (Aborted{}).Tag():
		return Aborted{}, nil
	default:
		return InvalidOperationArguments{Msg: "unknown executor error: " + enc.Tag}, nil
	}
}
