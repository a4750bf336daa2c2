package executor

import (
	"bytes"
	"encoding/gob"

	"github.com/flowzero/zflow/pkg/api"
)

// flowStateRecord is the durable record written to _zflow_flow_state:
// the flow being run plus the executor's last-known control status.
type flowStateRecord struct {
	Flow   api.Flow
	Status api.FlowStatus
}

// resultRecord is the durable record written to _zflow_flow_result once
// a flow resolves.
type resultRecord struct {
	Kind  api.PollKind
	Value api.DynamicValue
	Err   api.EncodedExecutorError
}

func encodeState(rec flowStateRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeState(data []byte) (flowStateRecord, error) {
	var rec flowStateRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return flowStateRecord{}, err
	}
	return rec, nil
}

func encodeResult(outcome api.PollOutcome) ([]byte, error) {
	rec := resultRecord{Kind: outcome.Kind, Value: outcome.Value}
	if outcome.Err != nil {
		rec.Err = api.EncodeExecutorError(outcome.Err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResult(data []byte) (*api.PollOutcome, error) {
	var rec resultRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, err
	}
	outcome := &api.PollOutcome{Kind: rec.Kind, Value: rec.Value}
	if rec.Kind == api.PollDied {
		execErr, err := api.DecodeExecutorError(rec.Err)
		if err != nil {
			return nil, err
		}
		outcome.Err = execErr
	}
	return outcome, nil
}
