package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned for bytes that are not an [event, payload] pair
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one decoded [event, payload] pair
type Frame struct {
	Event   string
	Payload json.RawMessage
}

// MarshalJSON encodes the frame as a two-element array
func (f Frame) MarshalJSON() ([]byte, error) {
	payload := f.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([2]any{f.Event, payload})
}

// UnmarshalJSON decodes a two-element array
func (f *Frame) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: expected 2 elements, got %d", ErrMalformedFrame, len(parts))
	}
	if err := json.Unmarshal(parts[0], &f.Event); err != nil {
		return fmt.Errorf("%w: event name: %v", ErrMalformedFrame, err)
	}
	if f.Event == "" {
		return fmt.Errorf("%w: empty event name", ErrMalformedFrame)
	}
	f.Payload = parts[1]
	return nil
}

// NewFrame builds a frame from an event name and payload
func NewFrame(event string, payload any) (Frame, error) {
	if event == "" {
		return Frame{}, fmt.Errorf("%w: empty event name", ErrMalformedFrame)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Frame{Event: event, Payload: pb}, nil
}

// Encode serializes an event and payload into wire bytes
func Encode(event string, payload any) ([]byte, error) {
	f, err := NewFrame(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(f)
}

// Decode parses wire bytes into a frame
func Decode(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, fmt.Errorf("%w: empty message", ErrMalformedFrame)
	}
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// DecodePayload unpacks a frame's payload into T
func DecodePayload[T any](f Frame) (T, error) {
	var out T
	if len(f.Payload) == 0 {
		return out, fmt.Errorf("%w: empty payload for %q", ErrMalformedFrame, f.Event)
	}
	if err := json.Unmarshal(f.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return out, nil
}
