package codec

import (
	"encoding/json"
	"fmt"

	"github.com/flowzero/zflow/pkg/api"
)

// DecodeBySchema parses a plain (untagged) JSON value, e.g. `11` or
// `"hello"` or `{"id":"o-1"}`, into a DynamicValue shaped by schema.
// This is what the HTTP façade uses to interpret a StartRequest's
// parameterJson under its declared inputSchema (spec §4.5 step 2) — as
// opposed to DecodeDynamicValue, which expects the self-describing
// {"<TypeTag>": payload} shape a DynamicValue already carries its own
// tag for.
func DecodeBySchema(schema *api.Schema, raw json.RawMessage) (api.DynamicValue, error) {
	if schema == nil {
		return api.DynamicValue{}, fmt.Errorf("codec: nil schema")
	}

	switch schema.Kind {
	case api.SchemaString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return api.DynamicValue{}, err
		}
		return api.StringValue(s), nil
	case api.SchemaInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return api.DynamicValue{}, err
		}
		return api.IntValue(n), nil
	case api.SchemaFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return api.DynamicValue{}, err
		}
		return api.FloatValue(f), nil
	case api.SchemaBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return api.DynamicValue{}, err
		}
		return api.BoolValue(b), nil
	case api.SchemaBytes:
		var bs []byte
		if err := json.Unmarshal(raw, &bs); err != nil {
			return api.DynamicValue{}, err
		}
		return api.BytesValue(bs), nil
	case api.SchemaRecord:
		var rawFields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &rawFields); err != nil {
			return api.DynamicValue{}, err
		}
		fields := make(map[string]api.DynamicValue, len(rawFields))
		for name, fieldSchema := range schema.Fields {
			fieldRaw, ok := rawFields[name]
			if !ok {
				return api.DynamicValue{}, fmt.Errorf("codec: missing field %q for record %q", name, schema.Tag())
			}
			v, err := DecodeBySchema(fieldSchema, fieldRaw)
			if err != nil {
				return api.DynamicValue{}, fmt.Errorf("codec: field %q: %w", name, err)
			}
			fields[name] = v
		}
		return api.RecordValue(schema.Tag(), fields), nil
	case api.SchemaSum:
		var wrapper struct {
			Tag   string          `json:"tag"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return api.DynamicValue{}, err
		}
		variantSchema, ok := schema.Variants[wrapper.Tag]
		if !ok {
			return api.DynamicValue{}, fmt.Errorf("codec: unknown variant %q for sum %q", wrapper.Tag, schema.Tag())
		}
		v, err := DecodeBySchema(variantSchema, wrapper.Value)
		if err != nil {
			return api.DynamicValue{}, fmt.Errorf("codec: variant %q: %w", wrapper.Tag, err)
		}
		return api.SumValueOf(schema.Tag(), wrapper.Tag, v), nil
	default:
		return api.DynamicValue{}, fmt.Errorf("codec: unsupported schema kind %q", schema.Kind)
	}
}
