package api

import (
	"encoding/json"
	"fmt"
)

// DynamicValue is a runtime-typed value carrying enough of its own shape
// to be encoded to and decoded from JSON without a static Go type: a
// primitive payload, a record of named fields, or a tagged sum variant.
//
// Succeeded and Failed poll outcomes wrap a DynamicValue; so does a bound
// template parameter.
type DynamicValue struct {
	Kind SchemaKind

	// Set when Kind is a primitive (String, Int, Float, Bool, Bytes).
	StringVal string
	IntVal    int64
	FloatVal  float64
	BoolVal   bool
	BytesVal  []byte

	// Name carries the record/sum type tag (mirrors Schema.Name) so the
	// encoded JSON key matches the declaring schema.
	Name string

	// Set when Kind == SchemaRecord.
	Fields map[string]DynamicValue

	// Set when Kind == SchemaSum.
	SumTag string
	SumVal *DynamicValue
}

func StringValue(v string) DynamicValue { return DynamicValue{Kind: SchemaString, StringVal: v} }
func IntValue(v int64) DynamicValue     { return DynamicValue{Kind: SchemaInt, IntVal: v} }
func FloatValue(v float64) DynamicValue { return DynamicValue{Kind: SchemaFloat, FloatVal: v} }
func BoolValue(v bool) DynamicValue     { return DynamicValue{Kind: SchemaBool, BoolVal: v} }
func BytesValue(v []byte) DynamicValue  { return DynamicValue{Kind: SchemaBytes, BytesVal: v} }

// RecordValue constructs a named-record DynamicValue.
func RecordValue(name string, fields map[string]DynamicValue) DynamicValue {
	return DynamicValue{Kind: SchemaRecord, Name: name, Fields: fields}
}

// SumValueOf constructs a named-sum DynamicValue selecting the given
// variant tag and inner value.
func SumValueOf(name, variantTag string, v DynamicValue) DynamicValue {
	inner := v
	return DynamicValue{Kind: SchemaSum, Name: name, SumTag: variantTag, SumVal: &inner}
}

// Tag returns the JSON type tag this value encodes under: its Name if
// set (records/sums), otherwise its primitive Kind.
func (v DynamicValue) Tag() string {
	if v.Name != "" {
		return v.Name
	}
	return string(v.Kind)
}

// Equal reports whether two dynamic values are structurally identical.
func (v DynamicValue) Equal(other DynamicValue) bool {
	if v.Kind != other.Kind || v.Name != other.Name {
		return false
	}
	switch v.Kind {
	case SchemaString:
		return v.StringVal == other.StringVal
	case SchemaInt:
		return v.IntVal == other.IntVal
	case SchemaFloat:
		return v.FloatVal == other.FloatVal
	case SchemaBool:
		return v.BoolVal == other.BoolVal
	case SchemaBytes:
		return string(v.BytesVal) == string(other.BytesVal)
	case SchemaRecord:
		if len(v.Fields) != len(other.Fields) {
			return false
		}
		for k, fv := range v.Fields {
			ov, ok := other.Fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	case SchemaSum:
		if v.SumTag != other.SumTag {
			return false
		}
		if (v.SumVal == nil) != (other.SumVal == nil) {
			return false
		}
		if v.SumVal == nil {
			return true
		}
		return v.SumVal.Equal(*other.SumVal)
	default:
		return false
	}
}

// sumPayload is the wire shape of a Sum-kind DynamicValue's payload: a
// variant tag paired with the value selected for that variant. It is
// recognized on decode by its exact field set, the same convention
// EncodedExecutorError uses for its own tag/fields split.
type sumPayload struct {
	Tag   string       `json:"tag"`
	Value DynamicValue `json:"value"`
}

// MarshalJSON encodes a DynamicValue as a single-key object keyed by its
// type tag, e.g. {"String":"hello"}, {"Int":1}, or {"OrderApproved":{...}}
// for a named record. This is the wire shape spec §6 describes for poll
// results and bound parameters.
func (v DynamicValue) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Kind {
	case SchemaString:
		payload = v.StringVal
	case SchemaInt:
		payload = v.IntVal
	case SchemaFloat:
		payload = v.FloatVal
	case SchemaBool:
		payload = v.BoolVal
	case SchemaBytes:
		payload = v.BytesVal
	case SchemaRecord:
		payload = v.Fields
	case SchemaSum:
		inner := DynamicValue{}
		if v.SumVal != nil {
			inner = *v.SumVal
		}
		payload = sumPayload{Tag: v.SumTag, Value: inner}
	default:
		return nil, fmt.Errorf("api: cannot marshal DynamicValue with kind %q", v.Kind)
	}
	return json.Marshal(map[string]any{v.Tag(): payload})
}

// UnmarshalJSON decodes the {"<Tag>": payload} shape MarshalJSON
// produces. The tag resolves to a primitive Kind when it matches one of
// the built-in SchemaKind names; any other tag is decoded as a record or
// named sum, distinguished by payload shape: an object with exactly the
// "tag" and "value" keys is a sum, anything else is a record.
func (v *DynamicValue) UnmarshalJSON(data []byte) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	if len(wrapper) != 1 {
		return fmt.Errorf("api: DynamicValue must encode exactly one tag, got %d", len(wrapper))
	}
	var tag string
	var raw json.RawMessage
	for tag, raw = range wrapper {
	}

	switch SchemaKind(tag) {
	case SchemaString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case SchemaInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		*v = IntValue(n)
		return nil
	case SchemaFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return err
		}
		*v = FloatValue(f)
		return nil
	case SchemaBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case SchemaBytes:
		var bs []byte
		if err := json.Unmarshal(raw, &bs); err != nil {
			return err
		}
		*v = BytesValue(bs)
		return nil
	}

	var sum sumPayload
	if err := json.Unmarshal(raw, &sum); err == nil {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err == nil && len(probe) == 2 {
			if _, hasTag := probe["tag"]; hasTag {
				if _, hasValue := probe["value"]; hasValue {
					*v = SumValueOf(tag, sum.Tag, sum.Value)
					return nil
				}
			}
		}
	}

	var fields map[string]DynamicValue
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("api: decoding record %q: %w", tag, err)
	}
	*v = RecordValue(tag, fields)
	return nil
}

func (v DynamicValue) String() string {
	switch v.Kind {
	case SchemaString:
		return fmt.Sprintf("String(%q)", v.StringVal)
	case SchemaInt:
		return fmt.Sprintf("Int(%d)", v.IntVal)
	case SchemaFloat:
		return fmt.Sprintf("Float(%g)", v.FloatVal)
	case SchemaBool:
		return fmt.Sprintf("Bool(%t)", v.BoolVal)
	case SchemaBytes:
		return fmt.Sprintf("Bytes(%dB)", len(v.BytesVal))
	case SchemaRecord:
		return fmt.Sprintf("Record(%s, %d fields)", v.Tag(), len(v.Fields))
	case SchemaSum:
		return fmt.Sprintf("Sum(%s::%s)", v.Tag(), v.SumTag)
	default:
		return "DynamicValue(invalid)"
	}
}
