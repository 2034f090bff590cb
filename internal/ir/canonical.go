package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, U+2028/U+2029 written literally
//  3. Strings are NFC normalized
//  4. NaN and infinities are rejected
func MarshalCanonical(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case nil, IRNull:
		buf.WriteString("null")
	case IRString:
		writeCanonicalString(buf, string(val))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRFloat:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("unsupported number: %v", f)
		}
		// encoding/json already emits the ES6 shortest form required by RFC 8785.
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case IRBool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString writes s as a JSON string. Only the quote, the
// backslash and control characters are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = NormalizeString(s)

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// ErrKeyCollision is returned by Normalize when two keys of one object
// have the same normalized form.
var ErrKeyCollision = errors.New("object keys collide after normalization")

// NormalizeString returns s as it is encoded: invalid UTF-8 sequences are
// replaced with U+FFFD and the result is NFC normalized.
func NormalizeString(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, string(utf8.RuneError)))
}

// Normalize returns a copy of v in which every string and object key is
// normalized. Encoding the copy writes exactly the strings it holds.
func Normalize(v IRValue) (IRValue, error) {
	switch val := v.(type) {
	case IRString:
		return IRString(NormalizeString(string(val))), nil
	case IRArray:
		out := make(IRArray, len(val))
		for i, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case IRObject:
		return NormalizeObject(val)
	default:
		return v, nil
	}
}

// NormalizeObject is Normalize for objects. A nil object stays nil.
func NormalizeObject(obj IRObject) (IRObject, error) {
	if obj == nil {
		return nil, nil
	}
	out := make(IRObject, len(obj))
	from := make(map[string]string, len(obj))
	for _, k := range obj.SortedKeys() {
		nk := NormalizeString(k)
		if prev, ok := from[nk]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrKeyCollision, prev, k)
		}
		from[nk] = k
		n, err := Normalize(obj[k])
		if err != nil {
			return nil, fmt.Errorf("[%q]: %w", k, err)
		}
		out[nk] = n
	}
	return out, nil
}
