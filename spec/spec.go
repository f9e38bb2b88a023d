package spec

import (
	"context"
	"encoding/json"
)

// StreamConn under layer transport connection. .i.e websocket
type StreamConn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, p []byte) error
	Close(code int, reason string) error
}

// ChannelEvaluateActor is the UI server channel that controls actor evaluation
const ChannelEvaluateActor = "evaluateActor"

// Actions understood on the evaluateActor channel
const (
	ActionRestart                = "restart"
	ActionEnablePolicySwitching  = "enablePolicySwitching"
	ActionDisablePolicySwitching = "disablePolicySwitching"
)

// Message is the envelope every UI server command is wrapped in
type Message struct {
	Channel string      `json:"channel"`
	Data    CommandData `json:"data"`
}

// CommandData carries the action and its action-specific fields.
// Fields that do not belong to the action are left empty and omitted.
type CommandData struct {
	Action         string   `json:"action"`
	ActorPath      string   `json:"actorPath,omitempty"`
	HoverActorPath string   `json:"hoverActorPath,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
}

func NewRestartMessage(actorPath string) Message {
	return Message{
		Channel: ChannelEvaluateActor,
		Data:    CommandData{Action: ActionRestart, ActorPath: actorPath},
	}
}

func NewEnablePolicySwitchingMessage(hoverActorPath string, threshold float64) Message {
	return Message{
		Channel: ChannelEvaluateActor,
		Data: CommandData{
			Action:         ActionEnablePolicySwitching,
			HoverActorPath: hoverActorPath,
			Threshold:      &threshold,
		},
	}
}

func NewDisablePolicySwitchingMessage() Message {
	return Message{
		Channel: ChannelEvaluateActor,
		Data:    CommandData{Action: ActionDisablePolicySwitching},
	}
}

func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
