// Package jsonvalue holds a generic JSON value that keeps object members in
// document order, so an upstream body can be decoded, rewritten and encoded
// again without reordering keys or reformatting numbers.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies which field of a Value is meaningful.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Value is a JSON value. Object members keep their input order and keys
// are unique: a repeated key replaces the earlier value in place.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  json.Number
	String  string
	Array   []*Value
	Members []Member
}

// ErrTrailingData is returned by Parse when more input follows the value.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// Get returns the value stored under key in an object.
func (v *Value) Get(key string) (*Value, bool) {
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Set stores value under key, keeping the position of an existing key.
func (v *Value) Set(key string, value *Value) {
	for i, m := range v.Members {
		if m.Key == key {
			v.Members[i].Value = value
			return
		}
	}
	v.Members = append(v.Members, Member{Key: key, Value: value})
}

// Parse decodes exactly one JSON value from text.
func Parse(text string) (*Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse JSON: %w", ErrTrailingData)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return &Value{Kind: Null}, nil
	case bool:
		return &Value{Kind: Bool, Bool: t}, nil
	case json.Number:
		return &Value{Kind: Number, Number: t}, nil
	case string:
		return &Value{Kind: String, String: t}, nil
	case json.Delim:
		switch t {
		case '[':
			v := &Value{Kind: Array, Array: []*Value{}}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				v.Array = append(v.Array, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		case '{':
			v := &Value{Kind: Object}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				member, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				v.Set(key, member)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Serialize encodes v as compact JSON. HTML characters are not escaped.
func Serialize(v *Value) (string, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return "", fmt.Errorf("failed to serialize JSON: %w", err)
	}
	return buf.String(), nil
}

// MarshalJSON implements json.Marshaler.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v *Value) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		b, err := json.Marshal(v.Number)
		if err != nil {
			return err
		}
		buf.Write(b)
	case String:
		return encodeString(buf, v.String)
	case Array:
		buf.WriteByte('[')
		for i, elem := range v.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %v", v.Kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
