package report

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

var recordType = reflect.TypeOf(Record{})

// Record is an insertion-ordered mapping from field name to value.
// Values are float64, string, or a nested *Record (a results section or an
// avg/stddev pair).
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores v under key. Re-setting an existing key keeps its position.
func (r *Record) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Section returns the nested record stored under key, or nil.
func (r *Record) Section(key string) *Record {
	v, _ := r.Get(key)
	sec, _ := v.(*Record)
	return sec
}

// Float returns the numeric value stored under key.
func (r *Record) Float(key string) (float64, bool) {
	v, _ := r.Get(key)
	f, ok := v.(float64)
	return f, ok
}

// Lookup follows a dotted path through nested sections, e.g.
// "CPUspeed.eventspersecond".
func (r *Record) Lookup(path string) (any, bool) {
	cur := r
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := cur.Get(p)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = v.(*Record); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Map returns a plain nested map copy of r.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		v := r.values[k]
		if sec, ok := v.(*Record); ok {
			out[k] = sec.Map()
			continue
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes r as a JSON object preserving key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes r as a mapping node preserving key order.
func (r *Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range r.Keys() {
		var val yaml.Node
		if err := val.Encode(r.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	return node, nil
}

// UnmarshalJSON decodes a JSON object into r, preserving key order.
// Nested objects become nested Records and numbers become float64.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &json.UnmarshalTypeError{Value: "non-object", Type: recordType}
	}
	*r = Record{values: make(map[string]any)}
	return r.decodeObject(dec)
}

func (r *Record) decodeObject(dec *json.Decoder) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		v, err := decodeValue(dec)
		if err != nil {
			return err
		}
		r.Set(key, v)
	}
	// closing '}'
	_, err := dec.Token()
	return err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			sub := NewRecord()
			if err := sub.decodeObject(dec); err != nil {
				return nil, err
			}
			return sub, nil
		}
		// Arrays never appear in parsed reports; keep them opaque.
		var arr []any
		for dec.More() {
			var elem any
			if err := dec.Decode(&elem); err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return t, nil
	}
}
