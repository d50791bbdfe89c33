// Package jsonutil holds JSON helpers for wiki payloads and model output.
package jsonutil

import (
	"bytes"
	"encoding/json"
)

// MarshalNoEscape encodes v without escaping <, > and & into \u003c and friends.
// Code snippets stay readable on the wire.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex decodes raw into v. Models occasionally return the document
// as a quoted JSON string; up to two levels of such wrapping are removed
// before giving up with the original error.
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	cur := raw
	for range 2 {
		var s string
		if json.Unmarshal(cur, &s) != nil {
			break
		}
		cur = []byte(s)
		if json.Unmarshal(cur, v) == nil {
			return nil
		}
	}
	return err
}
