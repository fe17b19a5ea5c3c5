// Package rpcwire implements the newline-delimited JSON framing spoken with the lint daemon.
// Each message is a single JSON object terminated by a line feed.
package rpcwire

import (
	"bytes"
	"encoding/json"
	"fmt"

	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
)

// MethodReady is the notification the daemon sends once it accepts requests.
const MethodReady = "ready"

// Request is an outbound call to the daemon.
type Request struct {
	ID     int64             `json:"id"`
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
}

// ResponseError is the error object carried by a failed response.
type ResponseError struct {
	Message string `json:"message"`
}

// Message is an inbound line from the daemon: a response when ID is set, otherwise a notification.
type Message struct {
	ID     *int64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// IsNotification reports whether the message carries no id.
func (m Message) IsNotification() bool {
	return m.ID == nil
}

// Encode serializes a request as a single line, including the trailing newline.
func Encode(req Request) ([]byte, error) {
	if req.Params == nil {
		req.Params = map[string]string{}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %q request: %w", req.Method, err)
	}
	return append(b, '\n'), nil
}

// Decoder accumulates partial reads and emits a Message for every complete line.
// A Decoder is not safe for concurrent use; each reader owns its own.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Append adds p to the buffered input and returns the messages completed by it, in order.
// Lines that cannot be decoded are returned as *errors.MalformedMessageError and do not affect the other messages.
func (d *Decoder) Append(p []byte) ([]Message, []error) {
	d.buf = append(d.buf, p...)

	var msgs []Message
	var errs []error
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:i])
		d.buf = d.buf[i+1:]
		if len(line) == 0 {
			continue
		}

		msg, err := decodeLine(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, msg)
	}

	// Release the backing array once everything has been consumed.
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return msgs, errs
}

// Buffered returns the number of bytes of an incomplete line held by the decoder.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset drops any partial line.
func (d *Decoder) Reset() {
	d.buf = nil
}

func decodeLine(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, &ulinterrors.MalformedMessageError{Line: string(line), Err: err}
	}
	if msg.ID == nil && msg.Method == "" {
		return Message{}, &ulinterrors.MalformedMessageError{Line: string(line)}
	}
	return msg, nil
}
