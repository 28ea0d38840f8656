package gateway

import (
	"fmt"
	"strings"
)

// Field is one key/value pair of a wire message.
type Field struct {
	Key   string
	Value string
}

// Message is the flat payload exchanged with the PG before encryption.
// Field order is part of the protocol, so it is an ordered list of pairs
// rather than a map. Values must not contain '&' or '=' (the protocol
// performs no escaping).
type Message struct {
	fields []Field
}

// NewMessage returns an empty wire message.
func NewMessage() *Message {
	return &Message{}
}

// Set appends a field. Empty values are dropped so absent optional
// fields never appear on the wire.
func (m *Message) Set(key, value string) *Message {
	if value == "" {
		return m
	}
	m.fields = append(m.fields, Field{Key: key, Value: value})
	return m
}

// Get returns the first value for key.
func (m *Message) Get(key string) (string, bool) {
	for _, f := range m.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Fields returns the pairs in wire order.
func (m *Message) Fields() []Field {
	return m.fields
}

// Map flattens the message for audit logging. Later duplicates win,
// which matches how the PG reads repeated keys.
func (m *Message) Map() map[string]string {
	out := make(map[string]string, len(m.fields))
	for _, f := range m.fields {
		out[f.Key] = f.Value
	}
	return out
}

// Serialize renders the message as key1=value1&key2=value2 in insertion
// order.
func (m *Message) Serialize() string {
	var b strings.Builder
	for i, f := range m.fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

// ParseMessage parses a serialized wire message. Pairs are split on the
// first '='; a pair without '=' means the plaintext is corrupt (the
// channel is encrypted, so this is treated as a decode error rather
// than skipped).
func ParseMessage(raw string) (*Message, error) {
	msg := NewMessage()
	if raw == "" {
		return msg, nil
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			return nil, fmt.Errorf("%w: pair %q has no separator", ErrCipherDecode, pair)
		}
		msg.fields = append(msg.fields, Field{Key: pair[:idx], Value: pair[idx+1:]})
	}
	return msg, nil
}
