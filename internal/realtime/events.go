package realtime

import "encoding/json"

// Event names carried on the wire, both directions.
const (
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventSendMessage = "send_message"

	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventReceiveMessage    = "receive_message"
	EventMessageSent       = "message_sent"
	EventUserStatus        = "user_status"
	EventOnlineUsers       = "online_users"
)

// Envelope frames every event. Data is decoded into the typed payload for the
// event name at the boundary; malformed frames never reach the handlers.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
}

type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// UserRef is the payload of user_typing and user_stopped_typing.
type UserRef struct {
	UserID string `json:"userId"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

func encodeEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
