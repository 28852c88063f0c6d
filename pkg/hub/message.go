// Package hub fans messages out to websocket clients using a single
// goroutine that owns the client set.
package hub

import "encoding/json"

// Message is one frame queued for clients.
type Message struct {
	Data   []byte
	Binary bool
}

// NewJSONMessage encodes v as a text frame.
func NewJSONMessage(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
