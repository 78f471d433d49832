package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
)

// Format selects the server to client framing.
type Format string

const (
	// FormatLegacy sends bare ChatMessage objects, presence as System
	// notices. Error frames are not sent. This is what the web client speaks.
	FormatLegacy Format = "legacy"
	// FormatEnvelope sends {"kind": ..., "payload": ...}.
	FormatEnvelope Format = "envelope"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatLegacy, "":
		return FormatLegacy, nil
	case FormatEnvelope:
		return FormatEnvelope, nil
	default:
		return "", fmt.Errorf("wire: unknown framing %q", s)
	}
}

// Encode renders fr in the given framing.
func Encode(f Format, fr Frame) ([]byte, error) {
	if f == FormatLegacy {
		if fr.Kind == KindError {
			return nil, ErrNotRepresentable
		}
		return json.Marshal(fr.Message)
	}

	var payload any
	switch fr.Kind {
	case KindChat:
		payload = fr.Message
	case KindJoined, KindLeft:
		payload = PresencePayload{
			ID:        fr.Message.ID,
			LobbyID:   fr.Message.LobbyID,
			Username:  fr.Username,
			Content:   fr.Message.Content,
			Timestamp: fr.Message.Timestamp,
		}
	case KindError:
		if fr.Error == nil {
			return nil, fmt.Errorf("wire: error frame without payload")
		}
		payload = fr.Error
	default:
		return nil, fmt.Errorf("wire: unknown frame kind %q", fr.Kind)
	}
	return json.Marshal(envelope{Kind: fr.Kind, Payload: payload})
}

// Decode classifies an inbound server frame. The framing is detected per
// frame: objects with a "kind" field are envelopes, anything else is a
// legacy ChatMessage.
func Decode(data []byte) (Frame, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Frame{}, protocolErr("frame is not a JSON object", nil)
	}

	var probe struct {
		Kind    *Kind           `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Frame{}, protocolErr("invalid json", err)
	}
	if probe.Kind != nil {
		return decodeEnvelope(*probe.Kind, probe.Payload)
	}
	return decodeLegacy(data)
}

func decodeLegacy(data []byte) (Frame, error) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Frame{}, protocolErr("invalid chat message", err)
	}
	if msg.Username == "" {
		return Frame{}, protocolErr("chat message without username", nil)
	}

	if msg.UserID != SystemUserID || msg.Username != SystemUsername {
		return Frame{Kind: KindChat, Message: msg}, nil
	}

	kind, who, ok := parsePresence(msg.Content)
	if !ok {
		return Frame{}, protocolErr(fmt.Sprintf("unrecognised system notice %q", msg.Content), nil)
	}
	return Frame{Kind: kind, Message: msg, Username: who}, nil
}

func decodeEnvelope(kind Kind, payload json.RawMessage) (Frame, error) {
	if len(payload) == 0 {
		return Frame{}, protocolErr(fmt.Sprintf("%s frame without payload", kind), nil)
	}

	switch kind {
	case KindChat:
		var msg domain.ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Frame{}, protocolErr("invalid chat payload", err)
		}
		return Frame{Kind: KindChat, Message: msg}, nil

	case KindJoined, KindLeft:
		var p PresencePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Frame{}, protocolErr("invalid presence payload", err)
		}
		if p.Username == "" {
			return Frame{}, protocolErr("presence payload without username", nil)
		}
		content := p.Content
		if content == "" {
			if kind == KindJoined {
				content = JoinedContent(p.Username)
			} else {
				content = LeftContent(p.Username)
			}
		}
		return presenceFrame(kind, p.ID, p.LobbyID, p.Username, content, p.Timestamp), nil

	case KindError:
		var p ErrorPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Frame{}, protocolErr("invalid error payload", err)
		}
		return Frame{Kind: KindError, Error: &p}, nil

	default:
		return Frame{}, protocolErr(fmt.Sprintf("unknown frame kind %q", kind), nil)
	}
}

// DecodeRequest parses a client frame.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, protocolErr("invalid request", err)
	}
	return req, nil
}

func EncodeRequest(content string) ([]byte, error) {
	return json.Marshal(Request{Content: content})
}
