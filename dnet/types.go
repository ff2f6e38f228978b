package dnet

import (
	"encoding/json"
	"errors"
	"fmt"
)

// HandlerFunc receives every frame matched to its registration.
type HandlerFunc func(res *Response)

// Message is the outbound wire shape.
type Message struct {
	Action  string `json:"action"`
	Data    any    `json:"data"`
	Rec     string `json:"rec"`
	AsyncID string `json:"asyncId,omitempty"`
}

// Frame is the inbound wire shape.
type Frame struct {
	Action   string          `json:"action"`
	Data     json.RawMessage `json:"data"`
	Status   int             `json:"status"`
	Sender   string          `json:"sender"`
	IsSource bool            `json:"isSource"`
	AsyncID  string          `json:"asyncId,omitempty"`
}

// Response is what a handler sees for a matched frame.
type Response struct {
	Data     json.RawMessage
	Sender   string
	Status   int
	OK       bool
	IsSource bool
}

// Bind decodes the payload into v.
func (r *Response) Bind(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Text returns the payload as a string when it is a JSON string, or the raw JSON otherwise.
func (r *Response) Text() string {
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return string(r.Data)
}

// StatusOK reports whether status is in the 2xx range.
func StatusOK(status int) bool {
	return status >= 200 && status < 300
}

func newResponse(f *Frame) *Response {
	return &Response{
		Data:     f.Data,
		Sender:   f.Sender,
		Status:   f.Status,
		OK:       StatusOK(f.Status),
		IsSource: f.IsSource,
	}
}

var (
	ErrEmptyAction   = errors.New("dnet: action cannot be empty")
	ErrNilHandler    = errors.New("dnet: handler cannot be nil")
	ErrEmptyEndpoint = errors.New("dnet: endpoint cannot be empty")
	ErrAlreadyActive = errors.New("dnet: connection is still active")
	ErrNotConnected  = errors.New("dnet: not connected")
	ErrCanceled      = errors.New("dnet: request canceled")
)

// StatusError rejects a request whose reply carried a non-2xx status.
type StatusError struct {
	Action   string
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dnet: %s failed with status %d", e.Action, e.Response.Status)
}

func encodeMessage(m *Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return b, nil
}

func decodeFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return &f, nil
}
