package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/flowzero/zflow/pkg/api"
)

// startRequest is the decoded (not yet resolved) form of the four-variant
// StartRequest tagged union spec §4.5 describes. Exactly one of the
// four shapes below is populated, mirroring which JSON variant arrived.
type startRequest struct {
	flow              *api.Flow
	flowWithParameter *flowWithParameterBody
	templateID        api.TemplateId
	templateWithParam *templateWithParameterBody
}

type flowWithParameterBody struct {
	Flow        api.Flow        `json:"flow"`
	InputSchema *api.Schema     `json:"inputSchema"`
	Parameter   json.RawMessage `json:"parameter"`
}

type templateWithParameterBody struct {
	Id        api.TemplateId  `json:"id"`
	Parameter json.RawMessage `json:"parameter"`
}

type templateBody struct {
	Id api.TemplateId `json:"id"`
}

// decodeStartRequest parses the body into exactly one StartRequest
// variant, recognized by its single top-level key.
func decodeStartRequest(data []byte) (startRequest, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return startRequest{}, fmt.Errorf("decoding request body: %w", err)
	}
	if len(wrapper) != 1 {
		return startRequest{}, fmt.Errorf("request body must have exactly one variant key, got %d", len(wrapper))
	}

	for key, raw := range wrapper {
		switch key {
		case "Flow":
			var flow api.Flow
			if err := json.Unmarshal(raw, &flow); err != nil {
				return startRequest{}, fmt.Errorf("decoding Flow: %w", err)
			}
			return startRequest{flow: &flow}, nil

		case "FlowWithParameter":
			var body flowWithParameterBody
			if err := json.Unmarshal(raw, &body); err != nil {
				return startRequest{}, fmt.Errorf("decoding FlowWithParameter: %w", err)
			}
			return startRequest{flowWithParameter: &body}, nil

		case "Template":
			var body templateBody
			if err := json.Unmarshal(raw, &body); err == nil && body.Id != "" {
				return startRequest{templateID: body.Id}, nil
			}
			var id api.TemplateId
			if err := json.Unmarshal(raw, &id); err != nil {
				return startRequest{}, fmt.Errorf("decoding Template: %w", err)
			}
			return startRequest{templateID: id}, nil

		case "TemplateWithParameter":
			var body templateWithParameterBody
			if err := json.Unmarshal(raw, &body); err != nil {
				return startRequest{}, fmt.Errorf("decoding TemplateWithParameter: %w", err)
			}
			return startRequest{templateWithParam: &body}, nil

		default:
			return startRequest{}, fmt.Errorf("unknown StartRequest variant %q", key)
		}
	}
	panic("unreachable")
}
