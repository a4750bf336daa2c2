// Package codec provides pure functions encoding the core's dynamic
// values and poll outcomes into the JSON wire shapes the HTTP façade
// responds with (spec §4.4, §6).
package codec

import (
	"encoding/json"

	"github.com/flowzero/zflow/pkg/api"
)

// EncodeDynamicValue renders v as the wire shape {"<TypeTag>": payload}.
// It delegates to api.DynamicValue's own MarshalJSON, which already
// produces exactly this shape; this wrapper exists so callers outside
// pkg/api have a named, documented encode/decode pair rather than
// depending on json.Marshal incidentally matching the contract.
func EncodeDynamicValue(v api.DynamicValue) (json.RawMessage, error) {
	return json.Marshal(v)
}

// DecodeDynamicValue parses the {"<TypeTag>": payload} wire shape back
// into a DynamicValue.
func DecodeDynamicValue(data []byte) (api.DynamicValue, error) {
	var v api.DynamicValue
	if err := json.Unmarshal(data, &v); err != nil {
		return api.DynamicValue{}, err
	}
	return v, nil
}

// pollResponse is the wire shape of a PollResponse: exactly one of the
// four keys is present, matching spec §6.
type pollResponse struct {
	Running   *struct{}        `json:"Running,omitempty"`
	Succeeded *api.DynamicValue `json:"Succeeded,omitempty"`
	Failed    *api.DynamicValue `json:"Failed,omitempty"`
	Died      json.RawMessage   `json:"Died,omitempty"`
}

// EncodePollOutcome renders outcome (nil meaning still Running) as the
// PollResponse JSON body spec §6 describes.
func EncodePollOutcome(outcome *api.PollOutcome) (json.RawMessage, error) {
	if outcome == nil {
		return json.Marshal(pollResponse{Running: &struct{}{}})
	}

	switch outcome.Kind {
	case api.PollSucceeded:
		v := outcome.Value
		return json.Marshal(pollResponse{Succeeded: &v})
	case api.PollFailed:
		v := outcome.Value
		return json.Marshal(pollResponse{Failed: &v})
	case api.PollDied:
		enc := api.EncodeExecutorError(outcome.Err)
		died, err := encodeExecutorErrorBody(enc)
		if err != nil {
			return nil, err
		}
		return json.Marshal(pollResponse{Died: died})
	default:
		return json.Marshal(pollResponse{Running: &struct{}{}})
	}
}

// encodeExecutorErrorBody renders an EncodedExecutorError as
// {"<ErrorTag>": <fields>}, matching spec §6's Died example
// ({"MissingVariable":{"name":"x","context":"y"}}).
func encodeExecutorErrorBody(enc api.EncodedExecutorError) (json.RawMessage, error) {
	fields := enc.Fields
	if len(fields) == 0 {
		fields = json.RawMessage("{}")
	}
	return json.Marshal(map[string]json.RawMessage{enc.Tag: fields})
}
