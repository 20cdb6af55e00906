package transport

import (
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------
// Wire frames (JSON text messages)
//
//	event:   {"event":"tick","data":{...}}
//	request: {"event":"request_history","id":7,"args":["BTC"]}
//	ack:     {"ack":7,"data":{"status":"ok","data":[...]}}
// -----------------------------------------------------------------------------

// OutboundFrame is what the client writes: an event, or a request when ID > 0
type OutboundFrame struct {
	Event string        `json:"event"`
	ID    int64         `json:"id,omitempty"`
	Args  []interface{} `json:"args,omitempty"`
}

// InboundFrame is what the source writes: an event, or an ack when Ack is set
type InboundFrame struct {
	Event string          `json:"event,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// IsAck reports whether the frame answers a request
func (f InboundFrame) IsAck() bool {
	return f.Ack != nil
}

// -----------------------------------------------------------------------------

// DecodeInbound parses one message from the source
func DecodeInbound(msg []byte) (InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return InboundFrame{}, fmt.Errorf("invalid frame: %w", err)
	}
	if f.Ack == nil && f.Event == "" {
		return InboundFrame{}, fmt.Errorf("frame has neither event nor ack")
	}
	return f, nil
}

// -----------------------------------------------------------------------------

// EncodeEvent builds an inbound event frame. Used by sources and test servers.
func EncodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(InboundFrame{Event: event, Data: raw})
}

// -----------------------------------------------------------------------------

// EncodeAck builds an ack frame for request id
func EncodeAck(id int64, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(InboundFrame{Ack: &id, Data: raw})
}
