// Package server exposes the HTTP handlers: WebSocket upgrades, the health
// check, and the built-in chat page.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler bundles the HTTP endpoints with their shared dependencies.
type Handler struct {
	hub      *Hub
	cfg      *Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the HTTP handler set over the given hub.
func NewHandler(hub *Hub, cfg *Config, logger *zap.Logger) *Handler {
	policy := newOriginPolicy(cfg.AllowedOrigins, logger)
	return &Handler{
		hub:    hub,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
	}
}

// WebSocket upgrades the HTTP connection and registers the resulting
// client with the hub, which starts its pumps.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.cfg, h.logger)
	h.hub.Register(client)
}

// Health responds with a plain text liveness message.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Chat room server is running!")
}

// ChatPage serves the built-in HTML chat client. It speaks the room's JSON
// protocol: a JOIN frame to claim a name, CHAT frames afterwards, and it
// honors the CLEAR_CHAT sentinel.
func (h *Handler) ChatPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, chatPageHTML); err != nil {
		h.logger.Warn("error writing HTML response", zap.Error(err))
	}
}

const chatPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Room</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .system { color: gray; font-style: italic; }
        .error { color: #b00020; }
        .chat { color: black; }
    </style>
</head>
<body>
    <h1>Chat Room</h1>

    <div id="joinForm">
        <input type="text" id="nameInput" placeholder="Pick a username (max 20 chars)">
        <button onclick="join()">Join</button>
    </div>

    <div id="messages"></div>

    <div>
        <input type="text" id="messageInput" placeholder="Type a message or .help" disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const nameInput = document.getElementById('nameInput');

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls || 'chat';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function join() {
            const name = nameInput.value.trim();
            if (!name) { return; }

            const scheme = location.protocol === 'https:' ? 'wss' : 'ws';
            ws = new WebSocket(scheme + '://' + location.host + '/ws');

            ws.onopen = function() {
                ws.send(JSON.stringify({type: 'JOIN', sender: name, content: ''}));
                messageInput.disabled = false;
                sendButton.disabled = false;
            };

            ws.onmessage = function(event) {
                const msg = JSON.parse(event.data);
                if (msg.content === 'CLEAR_CHAT') {
                    messagesDiv.innerHTML = '';
                    return;
                }
                if (msg.type === 'ERROR') {
                    addLine('[' + msg.timestamp + '] ' + msg.content, 'error');
                } else if (msg.type === 'CHAT') {
                    addLine('[' + msg.timestamp + '] ' + msg.sender + ': ' + msg.content, 'chat');
                } else {
                    addLine('[' + msg.timestamp + '] ' + msg.content, 'system');
                }
            };

            ws.onclose = function() {
                addLine('Connection closed', 'system');
                messageInput.disabled = true;
                sendButton.disabled = true;
                ws = null;
            };
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'CHAT', content: text, sender: ''}));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
