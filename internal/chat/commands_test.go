package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry) {
	t.Helper()
	reg := NewRegistry()
	return NewDispatcher(reg, zap.NewNop()), reg
}

func joinConn(t *testing.T, reg *Registry, name string) *fakeConn {
	t.Helper()
	conn := newFakeConn(name)
	_, err := reg.TryJoin(conn, name)
	require.NoError(t, err)
	return conn
}

func chatFrom(sender, content string) Message {
	return NewMessage(TypeChat, content, sender)
}

func TestDispatcherPrefixHandling(t *testing.T) {
	t.Run("should not consume plain chat text", func(t *testing.T) {
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")

		handled := d.Handle(alice, chatFrom("Alice", "hello there"))

		require.False(t, handled)
		require.Empty(t, alice.sent)
	})

	t.Run("should consume unknown commands without broadcasting them", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")
		bob := joinConn(t, reg, "Bob")

		handled := d.Handle(alice, chatFrom("Alice", ".frobnicate now"))

		req.True(handled)
		req.Len(alice.sent, 1)
		req.Equal(TypeError, alice.sent[0].Type)
		req.Contains(alice.sent[0].Content, ".frobnicate")
		req.Empty(bob.sent)
	})

	t.Run("should match the command word case-insensitively", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")

		req.True(d.Handle(alice, chatFrom("Alice", ".PiNg")))
		req.Len(alice.sent, 1)
		req.Equal("pong!", alice.sent[0].Content)
	})
}

func TestPingCommand(t *testing.T) {
	req := require.New(t)
	d, reg := newTestDispatcher(t)
	alice := joinConn(t, reg, "Alice")
	bob := joinConn(t, reg, "Bob")

	req.True(d.Handle(alice, chatFrom("Alice", ".ping")))

	req.Len(alice.sent, 1)
	req.Equal(TypeSystem, alice.sent[0].Type)
	req.Equal("pong!", alice.sent[0].Content)
	req.Equal(SystemSender, alice.sent[0].Sender)
	req.Empty(bob.sent, "ping must not broadcast")
}

func TestHelpCommand(t *testing.T) {
	req := require.New(t)
	d, reg := newTestDispatcher(t)
	alice := joinConn(t, reg, "Alice")

	req.True(d.Handle(alice, chatFrom("Alice", ".help")))

	req.Len(alice.sent, 1)
	help := alice.sent[0].Content
	for _, cmd := range []string{".ping", ".help", ".users", ".time", ".clear", ".me", ".msg"} {
		req.Contains(help, cmd)
	}
}

func TestUsersCommand(t *testing.T) {
	req := require.New(t)
	d, reg := newTestDispatcher(t)
	alice := joinConn(t, reg, "Alice")
	joinConn(t, reg, "Bob")

	req.True(d.Handle(alice, chatFrom("Alice", ".users")))

	req.Len(alice.sent, 1)
	req.Equal("Online users (2): Alice, Bob", alice.sent[0].Content)
}

func TestTimeCommand(t *testing.T) {
	req := require.New(t)
	d, reg := newTestDispatcher(t)
	alice := joinConn(t, reg, "Alice")

	req.True(d.Handle(alice, chatFrom("Alice", ".time")))

	req.Len(alice.sent, 1)
	content := alice.sent[0].Content
	req.Contains(content, "Server time: ")

	_, err := time.Parse(TimeLayout, content[len("Server time: "):])
	req.NoError(err)
}

func TestClearCommand(t *testing.T) {
	req := require.New(t)
	d, reg := newTestDispatcher(t)
	alice := joinConn(t, reg, "Alice")

	req.True(d.Handle(alice, chatFrom("Alice", ".clear")))

	req.Len(alice.sent, 1)
	req.Equal(ClearSentinel, alice.sent[0].Content)
}

func TestMeCommand(t *testing.T) {
	t.Run("should reply a usage error when the action is missing", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")
		bob := joinConn(t, reg, "Bob")

		req.True(d.Handle(alice, chatFrom("Alice", ".me")))

		req.Len(alice.sent, 1)
		req.Equal(TypeError, alice.sent[0].Type)
		req.Contains(alice.sent[0].Content, "usage")
		req.Empty(bob.sent)
	})

	t.Run("should broadcast the action to everyone including the sender", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")
		bob := joinConn(t, reg, "Bob")

		req.True(d.Handle(alice, chatFrom("Alice", ".me waves at everyone")))

		for _, conn := range []*fakeConn{alice, bob} {
			req.Len(conn.sent, 1)
			req.Equal(TypeSystem, conn.sent[0].Type)
			req.Equal("Alice waves at everyone", conn.sent[0].Content)
		}
	})
}

func TestMsgCommand(t *testing.T) {
	t.Run("should reply a usage error when target or text is missing", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")

		req.True(d.Handle(alice, chatFrom("Alice", ".msg")))
		req.True(d.Handle(alice, chatFrom("Alice", ".msg Bob")))

		req.Len(alice.sent, 2)
		for _, msg := range alice.sent {
			req.Equal(TypeError, msg.Type)
			req.Contains(msg.Content, "usage")
		}
	})

	t.Run("should reply not-online when the target is unknown", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")

		req.True(d.Handle(alice, chatFrom("Alice", ".msg Ghost hi")))

		req.Len(alice.sent, 1)
		req.Equal(TypeError, alice.sent[0].Type)
		req.Contains(alice.sent[0].Content, "Ghost")
	})

	t.Run("should not match a target whose connection already closed", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")
		bob := joinConn(t, reg, "Bob")
		bob.open = false

		req.True(d.Handle(alice, chatFrom("Alice", ".msg Bob hi")))

		req.Len(alice.sent, 1)
		req.Equal(TypeError, alice.sent[0].Type)
		req.Empty(bob.sent)
	})

	t.Run("should reject messaging yourself", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")

		req.True(d.Handle(alice, chatFrom("Alice", ".msg Alice hello me")))

		req.Len(alice.sent, 1)
		req.Equal(TypeError, alice.sent[0].Type)
		req.Contains(alice.sent[0].Content, "yourself")
	})

	t.Run("should deliver the message and a confirmation, and nothing to bystanders", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")
		bob := joinConn(t, reg, "Bob")
		carol := joinConn(t, reg, "Carol")

		req.True(d.Handle(bob, chatFrom("Bob", ".msg Alice hello there")))

		req.Len(alice.sent, 1)
		req.Equal(TypeSystem, alice.sent[0].Type)
		req.Contains(alice.sent[0].Content, "Bob")
		req.Contains(alice.sent[0].Content, "hello there")

		req.Len(bob.sent, 1)
		req.Contains(bob.sent[0].Content, "Alice")
		req.Contains(bob.sent[0].Content, "hello there")

		req.Empty(carol.sent)
	})

	t.Run("should keep the argument case-sensitive", func(t *testing.T) {
		req := require.New(t)
		d, reg := newTestDispatcher(t)
		alice := joinConn(t, reg, "Alice")
		joinConn(t, reg, "Bob")

		// ".MSG" matches the command, but "bob" is not "Bob".
		req.True(d.Handle(alice, chatFrom("Alice", ".MSG bob hi")))

		req.Len(alice.sent, 1)
		req.Equal(TypeError, alice.sent[0].Type)
	})
}

func TestSplitCommand(t *testing.T) {
	req := require.New(t)

	word, arg := splitCommand(".msg Alice   hello   world")
	req.Equal(".msg", word)
	req.Equal("Alice   hello   world", arg)

	word, arg = splitCommand(".ping")
	req.Equal(".ping", word)
	req.Empty(arg)

	word, arg = splitCommand(".me\t\tdances")
	req.Equal(".me", word)
	req.Equal("dances", arg)
}
