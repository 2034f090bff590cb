package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/roach88/dpstore/internal/ir"
)

// EncodeDocument returns the persisted form of d.
//
// Top-level keys are written in the fixed order status, state, events,
// errors. Log entries keep their insertion order; every nested object is
// written in canonical key order.
func EncodeDocument(d ir.Document) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"status":`)
	if d.Status == nil {
		buf.WriteString("null")
	} else {
		s, err := ir.MarshalCanonical(ir.IRString(*d.Status))
		if err != nil {
			return nil, fmt.Errorf("encode status: %w", err)
		}
		buf.Write(s)
	}

	state := d.State
	if state == nil {
		state = ir.IRObject{}
	}
	stateJSON, err := ir.MarshalCanonical(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	buf.WriteString(`,"state":`)
	buf.Write(stateJSON)

	buf.WriteString(`,"events":`)
	if err := encodeLog(&buf, d.Events); err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	buf.WriteString(`,"errors":`)
	if err := encodeLog(&buf, d.Errors); err != nil {
		return nil, fmt.Errorf("encode errors: %w", err)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func encodeLog(buf *bytes.Buffer, log *ir.Log[ir.IRObject]) error {
	buf.WriteByte('{')
	i := 0
	for id, rec := range log.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := ir.MarshalCanonical(ir.IRString(id))
		if err != nil {
			return err
		}
		if rec == nil {
			rec = ir.IRObject{}
		}
		val, err := ir.MarshalCanonical(rec)
		if err != nil {
			return fmt.Errorf("[%q]: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// IsEmptyDocument reports whether raw holds no document at all: nil, only
// whitespace, a JSON null, or an object without keys.
func IsEmptyDocument(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] != '{' {
		return false
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return false
	}
	return len(top) == 0
}

// DecodeDocument parses and validates a persisted document.
// Any deviation from the four-key schema is reported as a *ShapeError.
func DecodeDocument(raw []byte) (ir.Document, error) {
	shapeErr := func(reason string, args ...any) error {
		return &ShapeError{Raw: slices.Clone(raw), Reason: fmt.Sprintf(reason, args...)}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ir.Document{}, shapeErr("document is not a JSON object")
	}
	top, err := decodeTop(trimmed)
	if err != nil {
		return ir.Document{}, shapeErr("malformed document: %v", err)
	}

	missing, unexpected := checkKeys(top)
	if len(missing) > 0 || len(unexpected) > 0 {
		return ir.Document{}, &ShapeError{
			Raw:        slices.Clone(raw),
			Missing:    missing,
			Unexpected: unexpected,
			Reason:     "document must have exactly the keys status, state, events, errors",
		}
	}

	doc := ir.Document{}

	statusRaw := bytes.TrimSpace(top[ir.KeyStatus])
	if !bytes.Equal(statusRaw, []byte("null")) {
		var status string
		if err := json.Unmarshal(statusRaw, &status); err != nil {
			return ir.Document{}, shapeErr("status must be a string or null")
		}
		doc.Status = &status
	}

	if err := doc.State.UnmarshalJSON(top[ir.KeyState]); err != nil {
		return ir.Document{}, shapeErr("state: %v", err)
	}

	if doc.Events, err = decodeLog(top[ir.KeyEvents]); err != nil {
		return ir.Document{}, shapeErr("events: %v", err)
	}
	if doc.Errors, err = decodeLog(top[ir.KeyErrors]); err != nil {
		return ir.Document{}, shapeErr("errors: %v", err)
	}

	return doc, nil
}

// decodeTop splits a document into its top-level values. Unlike
// json.Unmarshal into a map it rejects a key given more than once.
func decodeTop(raw []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	top := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if _, dup := top[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("[%q]: %w", key, err)
		}
		top[key] = val
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after document")
	}
	return top, nil
}

// checkKeys returns the required keys missing from top and the keys that
// are not part of the schema, both sorted.
func checkKeys(top map[string]json.RawMessage) (missing, unexpected []string) {
	for _, k := range ir.DocumentKeys {
		if _, ok := top[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range top {
		if !slices.Contains(ir.DocumentKeys, k) {
			unexpected = append(unexpected, k)
		}
	}
	slices.Sort(missing)
	slices.Sort(unexpected)
	return missing, unexpected
}

// decodeLog reads a JSON object of records while keeping key order.
func decodeLog(raw json.RawMessage) (*ir.Log[ir.IRObject], error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	log := ir.NewLog[ir.IRObject]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var recRaw json.RawMessage
		if err := dec.Decode(&recRaw); err != nil {
			return nil, fmt.Errorf("[%q]: %w", id, err)
		}
		var rec ir.IRObject
		if err := rec.UnmarshalJSON(recRaw); err != nil {
			return nil, fmt.Errorf("[%q]: %w", id, err)
		}
		if !log.Append(id, rec) {
			return nil, fmt.Errorf("duplicate event id %q", id)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return log, nil
}
