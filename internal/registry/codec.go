package registry

import (
	"bytes"
	"encoding/gob"

	"github.com/flowzero/zflow/pkg/api"
)

// encodeTemplate and decodeTemplate serialize api.Template for durable
// storage using encoding/gob, the same codec the reference executor uses
// for flow state (internal/executor). Unlike the teacher's persistence
// codec, the payload here is always the concrete api.Template type, so
// no interface/concrete type-matching fallback is needed.
func encodeTemplate(tmpl api.Template) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tmpl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeTemplate(data []byte) (api.Template, error) {
	var tmpl api.Template
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tmpl); err != nil {
		return api.Template{}, err
	}
	return tmpl, nil
}
