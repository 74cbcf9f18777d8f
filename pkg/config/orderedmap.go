package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// OrderedStringMap is a string map that preserves the declaration order of
// its keys across JSON and YAML round-trips. Evaluation order of bump
// expressions depends on it.
type OrderedStringMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedStringMap builds an OrderedStringMap from alternating key/value
// pairs, in the order given.
func NewOrderedStringMap(pairs ...string) OrderedStringMap {
	m := OrderedStringMap{}

	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}

	return m
}

// Set adds or replaces the value for key, keeping first-insertion order.
func (m *OrderedStringMap) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}

	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m OrderedStringMap) Get(key string) (string, bool) {
	value, ok := m.values[key]

	return value, ok
}

// Keys returns the keys in declaration order.
func (m OrderedStringMap) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m OrderedStringMap) Len() int {
	return len(m.keys)
}

func (m OrderedStringMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		encodedValue, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}

		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedValue)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (m *OrderedStringMap) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected an object, got %v", token)
	}

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}

		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("expected a string key, got %v", keyToken)
		}

		var value string
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("value of %q is not a string: %w", key, err)
		}

		m.Set(key, value)
	}

	return nil
}

func (m OrderedStringMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, key := range m.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: m.values[key]},
		)
	}

	return node, nil
}

func (m *OrderedStringMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %v", value.Kind)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		m.Set(value.Content[i].Value, value.Content[i+1].Value)
	}

	return nil
}
