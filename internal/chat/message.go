// Package chat implements the chat room core: the message model, the
// session registry tracking who is online, the slash-command dispatcher,
// and the coordinator that drives the per-connection protocol. The package
// is transport-agnostic; connections reach it only through the Conn
// interface.
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType discriminates how a message is rendered by clients, not how
// it travels.
type MessageType string

// Wire values for MessageType.
const (
	TypeChat     MessageType = "CHAT"
	TypeJoin     MessageType = "JOIN"
	TypeLeave    MessageType = "LEAVE"
	TypeSystem   MessageType = "SYSTEM"
	TypeError    MessageType = "ERROR"
	TypeUserList MessageType = "USER_LIST"
)

// SystemSender is the sender name on every server-originated message.
const SystemSender = "System"

// TimeLayout is the timestamp format carried on the wire.
const TimeLayout = "2006-01-02 15:04:05"

// Message is the JSON frame exchanged with clients. Handlers construct a
// fresh Message per outbound event and never mutate one after sending.
// Room is carried for forward compatibility; no routing logic reads it.
type Message struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Sender    string      `json:"sender"`
	Timestamp string      `json:"timestamp,omitempty"`
	Room      string      `json:"room,omitempty"`
}

// NewMessage builds a message stamped with the current server time.
func NewMessage(t MessageType, content, sender string) Message {
	return Message{
		Type:      t,
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now().Format(TimeLayout),
	}
}

func systemMessage(content string) Message {
	return NewMessage(TypeSystem, content, SystemSender)
}

func errorMessage(content string) Message {
	return NewMessage(TypeError, content, SystemSender)
}

// DecodeMessage parses one inbound JSON frame. A frame missing its
// timestamp gets the current server time so downstream handlers can rely
// on the field being set.
func DecodeMessage(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Timestamp == "" {
		m.Timestamp = time.Now().Format(TimeLayout)
	}
	return m, nil
}

// EncodeMessage renders a message as a JSON text frame.
func EncodeMessage(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return payload, nil
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Sender, m.Content)
}
