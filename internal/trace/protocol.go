package trace

import (
	"encoding/json"

	"github.com/desertthunder/ezpbars/internal/progress"
)

// MessageTypeUpdate marks a stream message carrying a progress snapshot.
const MessageTypeUpdate = "update"

// AuthRequest is the first message a client sends on every connection.
type AuthRequest struct {
	Sub      string `json:"sub"`
	UID      string `json:"uid"`
	PbarName string `json:"pbar_name"`
}

// AuthResponse answers an [AuthRequest].
type AuthResponse struct {
	Success      *bool  `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// StreamMessage is every message after a successful handshake.
type StreamMessage struct {
	Type string             `json:"type,omitempty"`
	Data *progress.Snapshot `json:"data,omitempty"`
	Done bool               `json:"done,omitempty"`
}

// decodeAuthResponse parses the handshake reply. A reply without "success" is a protocol violation.
func decodeAuthResponse(data []byte) (AuthResponse, error) {
	var resp AuthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, &ProtocolError{Err: err}
	}
	if resp.Success == nil {
		return resp, protocolErrorf("auth response missing success")
	}
	return resp, nil
}

// decodeStreamMessage parses a streamed message. An update without data is a protocol violation.
func decodeStreamMessage(data []byte) (StreamMessage, error) {
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, &ProtocolError{Err: err}
	}
	if msg.Type == MessageTypeUpdate && msg.Data == nil {
		return msg, protocolErrorf("update message missing data")
	}
	return msg, nil
}
