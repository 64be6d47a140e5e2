package chatclient

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

type FrameKind int

const (
	FrameUnrecognized FrameKind = iota
	FrameMessage
)

func (k FrameKind) String() string {
	switch k {
	case FrameMessage:
		return "message"
	default:
		return "unrecognized"
	}
}

// Frame is one inbound payload from the duplex channel after classification.
type Frame struct {
	Kind    FrameKind
	Message domain.ChatMessage
	Reason  string // why the frame was not recognized
}

var requiredMessageFields = []string{"senderId", "receiverId", "content", "messageType"}

// DecodeFrame classifies data as a chat message or as unrecognized. A
// message must be a single JSON object carrying every required field with
// the right type, and non-nil sender and receiver ids. Unknown extra fields
// are tolerated.
func DecodeFrame(data []byte) Frame {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return unrecognized("not a JSON object: %v", err)
	}
	for _, name := range requiredMessageFields {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return unrecognized("missing field %q", name)
		}
	}

	var msg domain.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return unrecognized("bad message shape: %v", err)
	}
	if msg.SenderID == uuid.Nil || msg.ReceiverID == uuid.Nil {
		return unrecognized("empty sender or receiver")
	}

	return Frame{Kind: FrameMessage, Message: msg}
}

func unrecognized(format string, args ...any) Frame {
	return Frame{Kind: FrameUnrecognized, Reason: fmt.Sprintf(format, args...)}
}
