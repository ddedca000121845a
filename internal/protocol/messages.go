package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Errors
var (
	// ErrMalformedFrame is returned for inbound frames that cannot be decoded
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrBroadcast marks an untagged server broadcast such as the connected
	// player count. It is always wrapped together with ErrMalformedFrame.
	ErrBroadcast = errors.New("untagged broadcast")
)

// GlobalGameState is the action-less broadcast sent to every client when
// a player connects or disconnects
type GlobalGameState struct {
	NConnectedPlayers *int `json:"n_connected_players"`
}

// GameMessage is an outbound command
type GameMessage struct {
	Action  ActionKind     `json:"action"`
	Payload map[string]any `json:"payload"`
}

// GameMessageResponse is an inbound server message. Error may be set
// together with a populated Payload (partial success).
type GameMessageResponse struct {
	Action  ActionKind     `json:"action"`
	Payload map[string]any `json:"payload"`
	Error   string         `json:"error,omitempty"`
}

// HasPayload reports whether the response carries anything to reconcile
func (r GameMessageResponse) HasPayload() bool {
	return len(r.Payload) > 0
}

// NewMessage builds an outbound message, normalising a nil payload to {}
func NewMessage(action ActionKind, payload map[string]any) GameMessage {
	if payload == nil {
		payload = map[string]any{}
	}
	return GameMessage{Action: action, Payload: payload}
}

// Encode serialises an outbound message as a UTF-8 JSON frame
func Encode(msg GameMessage) ([]byte, error) {
	if msg.Payload == nil {
		msg.Payload = map[string]any{}
	}
	return json.Marshal(msg)
}

// DecodeResponse parses an inbound frame
func DecodeResponse(data []byte) (GameMessageResponse, error) {
	var resp GameMessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return GameMessageResponse{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if resp.Action == "" {
		var state GlobalGameState
		if json.Unmarshal(data, &state) == nil && state.NConnectedPlayers != nil {
			return GameMessageResponse{}, fmt.Errorf("%w: %w", ErrMalformedFrame, ErrBroadcast)
		}
		return GameMessageResponse{}, fmt.Errorf("%w: missing action", ErrMalformedFrame)
	}
	return resp, nil
}

// DecodePayload converts an untyped payload map into T using json field tags.
// Numbers arrive from encoding/json as float64, so weak typing is enabled.
// Keys listed in required must be present, non-null and not the empty string.
func DecodePayload[T any](payload map[string]any, required ...string) (T, error) {
	var out T
	for _, key := range required {
		if v, ok := payload[key]; !ok || v == nil || v == "" {
			return out, fmt.Errorf("%w: missing %s", ErrMalformedFrame, key)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(payload); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return out, nil
}
