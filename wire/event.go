package wire

import (
	"encoding/json"
	"errors"
	"io"
)

// 客户端发来的事件
const (
	EvJoinUser          = "joinUser"
	EvJoinChannel       = "joinChannel"
	EvSendMessage       = "sendMessage"
	EvTyping            = "typing"
	EvSendDirectMessage = "sendDirectMessage"
	EvTypingDm          = "typingDm"
)

// 服务端下发的事件
const (
	EvNewMessage    = "newMessage"
	EvUserTyping    = "userTyping"
	EvDirectMessage = "directMessage"
	EvUserTypingDm  = "userTypingDm"
	EvUserOnline    = "userOnline"
	EvUserOffline   = "userOffline"
	EvOnlineUsers   = "onlineUsers"
)

// ErrUnknownEvent unknown event name
var ErrUnknownEvent = errors.New("unknown event")

// Event 一条实时事件, {"event": ..., "data": ...}
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinUser joinUser payload
type JoinUser struct {
	Username string `json:"username"`
}

// JoinChannel joinChannel payload
type JoinChannel struct {
	Channel string `json:"channel"`
}

// ChatPayload sendMessage payload
type ChatPayload struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// ChannelMsg newMessage payload
type ChannelMsg struct {
	Channel   string `json:"channel"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Typing typing / userTyping payload
type Typing struct {
	Channel string `json:"channel"`
	User    string `json:"user"`
}

// DirectPayload sendDirectMessage payload
type DirectPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// DirectMsg directMessage payload
type DirectMsg struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// TypingDm typingDm / userTypingDm payload
type TypingDm struct {
	To   string `json:"to,omitempty"`
	From string `json:"from"`
}

// Presence userOnline / userOffline payload
type Presence struct {
	Username string `json:"username"`
}

// OnlineUsers onlineUsers payload
type OnlineUsers struct {
	Usernames []string `json:"usernames"`
}

// MakeEvent build an event with a marshaled payload
func MakeEvent(name string, body interface{}) (*Event, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Event{Name: name, Data: data}, nil
}

// DecodeData unmarshal the payload into body
func (e *Event) DecodeData(body interface{}) error {
	if len(e.Data) == 0 {
		return io.ErrUnexpectedEOF
	}
	return json.Unmarshal(e.Data, body)
}

// Encode Encode Event to writer
func (e *Event) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}

// Decode Decode reader to Event
func (e *Event) Decode(r io.Reader) error {
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return err
	}
	if e.Name == "" {
		return ErrUnknownEvent
	}
	return nil
}

// Marshal Marshal
func Marshal(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal Unmarshal
func Unmarshal(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	if ev.Name == "" {
		return nil, ErrUnknownEvent
	}
	return &ev, nil
}
