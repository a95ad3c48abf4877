package types

import (
	"bytes"
	"encoding/json"
	"sort"
)

// splitExtra returns the top-level keys of the JSON object in data that are
// not in known, or nil when there are none.
func splitExtra(data []byte, known map[string]bool) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k := range raw {
		if known[k] {
			delete(raw, k)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// appendExtra adds the extra keys, sorted, after the fields already encoded
// in object. Keys that name a known field are skipped.
func appendExtra(object []byte, extra map[string]json.RawMessage, known map[string]bool) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return object, nil
	}
	sort.Strings(keys)

	body := bytes.TrimSuffix(bytes.TrimSpace(object), []byte("}"))
	var buf bytes.Buffer
	buf.Write(body)
	needComma := len(bytes.TrimSpace(body)) > 1
	for _, k := range keys {
		if needComma {
			buf.WriteByte(',')
		}
		needComma = true
		name, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape is json.Marshal without HTML escaping; question texts
// routinely contain quotes and ampersands.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
