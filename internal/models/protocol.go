package models

import "encoding/json"

// ==================== Inbound Messages ====================

// Inbound message types
const (
	MessageTypeMessage  = "message"
	MessageTypeShutdown = "shutdown"
)

// InboundMessage represents one line read from the supervisor
type InboundMessage struct {
	Type      string `json:"type"` // "message", "shutdown"
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ==================== Outbound Events ====================

// Outbound event types
const (
	EventTypeReady    = "ready"
	EventTypeActivity = "activity"
	EventTypeResponse = "response"
	EventTypeError    = "error"
)

// Activity tool names
const (
	ToolBraveSearch = "brave_search"
	ToolThinking    = "thinking"
)

// OutboundEvent represents one line written back to the supervisor.
// Every event except ready carries the message_id of the request that caused it.
type OutboundEvent struct {
	Type        string `json:"type"` // "ready", "activity", "response", "error"
	Tool        string `json:"tool,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Error       string `json:"error,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Done        bool   `json:"done,omitempty"`
}

// ReadyEvent is written once at startup
func ReadyEvent() OutboundEvent {
	return OutboundEvent{Type: EventTypeReady}
}

// ActivityEvent reports which stage of a request is executing
func ActivityEvent(messageID, tool, description string) OutboundEvent {
	return OutboundEvent{
		Type:        EventTypeActivity,
		Tool:        tool,
		Description: description,
		MessageID:   messageID,
	}
}

// ResponseEvent is the terminal event of a request
func ResponseEvent(messageID, content string) OutboundEvent {
	return OutboundEvent{
		Type:      EventTypeResponse,
		Content:   content,
		MessageID: messageID,
		Done:      true,
	}
}

// ErrorEvent reports a request failure; it is always followed by a ResponseEvent
func ErrorEvent(messageID, errText string) OutboundEvent {
	return OutboundEvent{
		Type:      EventTypeError,
		Error:     errText,
		MessageID: messageID,
	}
}

// MarshalJSON writes exactly the fields that belong to the event type
func (e OutboundEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventTypeActivity:
		return json.Marshal(struct {
			Type        string `json:"type"`
			Tool        string `json:"tool"`
			Description string `json:"description"`
			MessageID   string `json:"message_id"`
		}{e.Type, e.Tool, e.Description, e.MessageID})
	case EventTypeResponse:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			MessageID string `json:"message_id"`
			Done      bool   `json:"done"`
		}{e.Type, e.Content, e.MessageID, e.Done})
	case EventTypeError:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Error     string `json:"error"`
			MessageID string `json:"message_id"`
		}{e.Type, e.Error, e.MessageID})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{e.Type})
	}
}
