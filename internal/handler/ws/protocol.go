package ws

import "SignalPull/internal/domain/models"

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgSignal   MessageType = "signal"
	MsgError    MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Snapshot models.Snapshot `json:"snapshot"`
}

type SignalPayload struct {
	Event models.SignalEvent `json:"event"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
