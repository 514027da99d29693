package events

import (
	"bytes"
	"encoding/json"
)

const contentKey = "content"

// Payload is either a MapPayload or a ScalarPayload.
type Payload interface {
	// Text returns the markdown text carried by the payload.
	Text() (string, bool)
	isPayload()
}

// MapPayload is a JSON object payload; its text lives under "content".
type MapPayload map[string]json.RawMessage

func (p MapPayload) Text() (string, bool) {
	raw, ok := p[contentKey]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

func (MapPayload) isPayload() {}

// ScalarPayload is any non-object payload, kept as its string form.
type ScalarPayload struct {
	Value string
}

func (p ScalarPayload) Text() (string, bool) {
	return p.Value, true
}

func (ScalarPayload) isPayload() {}

// DecodePayload resolves raw message bytes into a Payload. JSON objects become
// a MapPayload; JSON strings are unquoted; everything else is kept verbatim.
func DecodePayload(raw []byte) Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '{':
			var m MapPayload
			if err := json.Unmarshal(trimmed, &m); err == nil {
				return m
			}
		case '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err == nil {
				return ScalarPayload{Value: s}
			}
		}
	}
	return ScalarPayload{Value: string(raw)}
}
