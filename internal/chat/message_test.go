package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewMessageStampsTimestamp(t *testing.T) {
	req := require.New(t)

	msg := NewMessage(TypeSystem, "hello", SystemSender)

	req.NotEmpty(msg.Timestamp)
	_, err := time.Parse(TimeLayout, msg.Timestamp)
	req.NoError(err)
}

func TestDecodeMessage(t *testing.T) {
	t.Run("should keep a provided timestamp", func(t *testing.T) {
		req := require.New(t)

		msg, err := DecodeMessage([]byte(`{"type":"CHAT","content":"hi","sender":"Alice","timestamp":"2024-05-01 10:00:00"}`))

		req.NoError(err)
		req.Equal(TypeChat, msg.Type)
		req.Equal("2024-05-01 10:00:00", msg.Timestamp)
	})

	t.Run("should stamp a missing timestamp with server time", func(t *testing.T) {
		req := require.New(t)

		msg, err := DecodeMessage([]byte(`{"type":"CHAT","content":"hi","sender":"Alice"}`))

		req.NoError(err)
		req.NotEmpty(msg.Timestamp)
		_, perr := time.Parse(TimeLayout, msg.Timestamp)
		req.NoError(perr)
	})

	t.Run("should accept a frame without a room", func(t *testing.T) {
		req := require.New(t)

		msg, err := DecodeMessage([]byte(`{"type":"JOIN","sender":"Alice","content":""}`))

		req.NoError(err)
		req.Empty(msg.Room)
	})

	t.Run("should fail on malformed JSON", func(t *testing.T) {
		_, err := DecodeMessage([]byte("{nope"))
		require.Error(t, err)
	})
}

func TestEncodeMessageOmitsEmptyRoom(t *testing.T) {
	req := require.New(t)

	payload, err := EncodeMessage(Message{Type: TypeChat, Content: "hi", Sender: "Alice"})

	req.NoError(err)
	req.NotContains(string(payload), `"room"`)
}

func TestMessageString(t *testing.T) {
	msg := Message{Timestamp: "2024-05-01 10:00:00", Sender: "Alice", Content: "hi"}
	require.Equal(t, "[2024-05-01 10:00:00] Alice: hi", msg.String())
}
