// Package live pushes the shared event to browsers and CLI watchers over
// websockets.
package live

import "secretsanta/internal/models"

// MessageType tags websocket messages.
type MessageType string

const (
	MessageEvent MessageType = "event"
	MessageError MessageType = "error"
)

// Message is the wrapper for every websocket frame.
type Message struct {
	Type        MessageType         `json:"type"`
	Event       *models.PublicEvent `json:"event,omitempty"`
	Error       string              `json:"error,omitempty"`
	SetupNeeded bool                `json:"setupNeeded,omitempty"`
}
