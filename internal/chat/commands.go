package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// commandPrefix marks chat text that is intercepted before broadcast.
const commandPrefix = "."

// ClearSentinel is the payload clients interpret as "wipe the local chat
// log". The server holds no history, so this is the entire effect.
const ClearSentinel = "CLEAR_CHAT"

type commandFunc func(conn Conn, sender, arg string)

type command struct {
	name  string
	usage string
	run   commandFunc
}

// Dispatcher interprets slash commands embedded in chat text. The command
// set is a table; adding a command is one more entry in newDispatcher.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	table    map[string]command
	order    []string
}

// NewDispatcher builds a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   logger,
		table:    make(map[string]command),
	}
	for _, c := range []command{
		{".ping", ".ping - check server responsiveness", d.handlePing},
		{".help", ".help - show this help text", d.handleHelp},
		{".users", ".users - list online users", d.handleUsers},
		{".time", ".time - show current server time", d.handleTime},
		{".clear", ".clear - clear your chat log", d.handleClear},
		{".me", ".me <action> - send an action message", d.handleMe},
		{".msg", ".msg <username> <message> - send a private message", d.handleMsg},
	} {
		d.table[c.name] = c
		d.order = append(d.order, c.name)
	}
	return d
}

// Handle interprets msg.Content as a command invoked by msg.Sender. It
// reports whether the text was consumed; once the prefix matches it always
// is, unknown commands included, so raw command text never leaks into the
// room as chat.
func (d *Dispatcher) Handle(conn Conn, msg Message) bool {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, commandPrefix) {
		return false
	}

	word, arg := splitCommand(content)
	cmd, ok := d.table[strings.ToLower(word)]
	if !ok {
		d.reply(conn, errorMessage(fmt.Sprintf("unknown command: %s, type .help for available commands", word)))
		d.logger.Info("unknown command", zap.String("user", msg.Sender), zap.String("command", word))
		return true
	}

	cmd.run(conn, msg.Sender, arg)
	d.logger.Info("command executed", zap.String("user", msg.Sender), zap.String("command", strings.ToLower(word)))
	return true
}

// splitCommand splits trimmed content on the first run of whitespace. The
// command word is matched case-insensitively; the argument keeps its case.
func splitCommand(s string) (word, arg string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

func (d *Dispatcher) handlePing(conn Conn, _, _ string) {
	d.reply(conn, systemMessage("pong!"))
}

func (d *Dispatcher) handleHelp(conn Conn, _, _ string) {
	lines := make([]string, 0, len(d.order)+1)
	lines = append(lines, "Available commands:")
	for _, name := range d.order {
		lines = append(lines, d.table[name].usage)
	}
	d.reply(conn, systemMessage(strings.Join(lines, "\n")))
}

func (d *Dispatcher) handleUsers(conn Conn, _, _ string) {
	d.reply(conn, onlineUsersMessage(d.registry))
}

func (d *Dispatcher) handleTime(conn Conn, _, _ string) {
	d.reply(conn, systemMessage("Server time: "+time.Now().Format(TimeLayout)))
}

func (d *Dispatcher) handleClear(conn Conn, _, _ string) {
	d.reply(conn, systemMessage(ClearSentinel))
}

func (d *Dispatcher) handleMe(conn Conn, sender, arg string) {
	if arg == "" {
		d.reply(conn, errorMessage("usage: .me <action>, e.g. .me waves"))
		return
	}
	broadcast(d.logger, d.registry.Snapshot(), systemMessage(sender+" "+arg), nil)
}

func (d *Dispatcher) handleMsg(conn Conn, sender, arg string) {
	target, text := splitCommand(arg)
	if target == "" || text == "" {
		d.reply(conn, errorMessage("usage: .msg <username> <message>, e.g. .msg Alice hello"))
		return
	}

	targetConn, ok := d.registry.FindConn(target)
	if !ok {
		d.reply(conn, errorMessage(fmt.Sprintf("user %s is not online", target)))
		return
	}
	// Identity comparison, not name equality: never misfire on a
	// lookalike name.
	if targetConn == conn {
		d.reply(conn, errorMessage("you cannot send a private message to yourself"))
		return
	}

	d.reply(targetConn, systemMessage(fmt.Sprintf("[private] %s says to you: %s", sender, text)))
	d.reply(conn, systemMessage(fmt.Sprintf("[private] you say to %s: %s", target, text)))
}

func (d *Dispatcher) reply(conn Conn, msg Message) {
	if !conn.IsOpen() {
		return
	}
	if err := conn.Send(msg); err != nil {
		d.logger.Warn("command reply failed",
			zap.String("addr", conn.RemoteAddr()),
			zap.Error(err))
	}
}
