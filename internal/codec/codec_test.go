package codec

import (
	"encoding/json"
	"testing"

	"github.com/flowzero/zflow/pkg/api"
)

func TestEncodeDynamicValueRoundTrip(t *testing.T) {
	cases := []api.DynamicValue{
		api.StringValue("hello"),
		api.IntValue(1),
		api.FloatValue(2.5),
		api.BoolValue(true),
		api.RecordValue("OrderApproved", map[string]api.DynamicValue{
			"id": api.StringValue("o-1"),
		}),
		api.SumValueOf("Shape", "Circle", api.FloatValue(3.0)),
	}

	for _, v := range cases {
		data, err := EncodeDynamicValue(v)
		if err != nil {
			t.Fatalf("encode %v: %v", v, err)
		}
		got, err := DecodeDynamicValue(data)
		if err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if !got.Equal(v) {
			t.Fatalf("round trip mismatch: got %+v want %+v (json: %s)", got, v, data)
		}
	}
}

func TestEncodeDynamicValuePrimitiveShapes(t *testing.T) {
	tests := []struct {
		value api.DynamicValue
		want  string
	}{
		{api.StringValue("hello"), `{"String":"hello"}`},
		{api.IntValue(1), `{"Int":1}`},
		{api.BoolValue(true), `{"Bool":true}`},
	}
	for _, tt := range tests {
		data, err := EncodeDynamicValue(tt.value)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if string(data) != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, data)
		}
	}
}

func TestEncodePollOutcomeRunning(t *testing.T) {
	data, err := EncodePollOutcome(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	assertJSONEqual(t, data, `{"Running":{}}`)
}

func TestEncodePollOutcomeSucceeded(t *testing.T) {
	data, err := EncodePollOutcome(api.Succeeded(api.StringValue("hello")))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	assertJSONEqual(t, data, `{"Succeeded":{"String":"hello"}}`)
}

func TestEncodePollOutcomeFailed(t *testing.T) {
	data, err := EncodePollOutcome(api.Failed(api.StringValue("hello")))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	assertJSONEqual(t, data, `{"Failed":{"String":"hello"}}`)
}

func TestEncodePollOutcomeDied(t *testing.T) {
	data, err := EncodePollOutcome(api.Died(api.MissingVariable{Name: "x", Context: "y"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	assertJSONEqual(t, data, `{"Died":{"MissingVariable":{"name":"x","context":"y"}}}`)
}

func assertJSONEqual(t *testing.T, got []byte, want string) {
	t.Helper()
	var gotVal, wantVal any
	if err := json.Unmarshal(got, &gotVal); err != nil {
		t.Fatalf("invalid JSON %s: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &wantVal); err != nil {
		t.Fatalf("invalid expected JSON %s: %v", want, err)
	}
	gotCanon, _ := json.Marshal(gotVal)
	wantCanon, _ := json.Marshal(wantVal)
	if string(gotCanon) != string(wantCanon) {
		t.Fatalf("got %s, want %s", got, want)
	}
}
