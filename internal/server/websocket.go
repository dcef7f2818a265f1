package server

import (
	"context"
	"encoding/json"
	"net/http"

	"nhooyr.io/websocket"

	"gameshub/internal/surface"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type actionPayload struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type loadPayload struct {
	Game string `json:"game"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		s.log.Warn("websocket accept", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if c, err := s.hub.Games(ctx); err == nil {
		if err := conn.Write(ctx, websocket.MessageText, encodeWSMsg("games", c)); err != nil {
			return
		}
	}

	// Views only ever need the newest snapshot; replies must all arrive.
	views := make(chan []byte, 1)
	send := make(chan []byte, 16)

	unsubscribe, err := s.hub.Subscribe(ctx, func(v surface.View) {
		pushLatest(views, encodeWSMsg("view", v))
	})
	if err != nil {
		sendWSError(ctx, conn, "hub unavailable")
		return
	}
	defer unsubscribe()

	// Writer goroutine: send queued messages to the websocket
	go func() {
		for {
			var msg []byte
			select {
			case <-ctx.Done():
				return
			case msg = <-views:
			case msg = <-send:
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				cancel()
				return
			}
		}
	}()

	// Reader loop: handle incoming messages
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSMsg(ctx, send, "error", errorPayload{Message: "invalid message"})
			continue
		}
		s.handleMessage(ctx, send, msg)
	}
	s.log.Debug("websocket client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) handleMessage(ctx context.Context, send chan []byte, msg WSMessage) {
	switch msg.Type {
	case "action":
		var ap actionPayload
		if err := json.Unmarshal(msg.Payload, &ap); err != nil || ap.Action == "" {
			sendWSMsg(ctx, send, "error", errorPayload{Message: "invalid action payload"})
			return
		}
		if err := s.hub.Dispatch(ctx, ap.Action, ap.Data); err != nil {
			sendWSMsg(ctx, send, "error", errorPayload{Message: err.Error()})
		}

	case "load":
		var lp loadPayload
		if err := json.Unmarshal(msg.Payload, &lp); err != nil || lp.Game == "" {
			sendWSMsg(ctx, send, "error", errorPayload{Message: "invalid load payload"})
			return
		}
		if err := s.hub.Load(ctx, lp.Game); err != nil {
			sendWSMsg(ctx, send, "error", errorPayload{Message: err.Error()})
			return
		}
		if c, err := s.hub.Games(ctx); err == nil {
			sendWSMsg(ctx, send, "games", c)
		}

	case "unload":
		if err := s.hub.Unload(ctx); err != nil {
			sendWSMsg(ctx, send, "error", errorPayload{Message: err.Error()})
		}

	default:
		sendWSMsg(ctx, send, "error", errorPayload{Message: "unknown message type: " + msg.Type})
	}
}

func encodeWSMsg(msgType string, payload any) []byte {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	return msg
}

func sendWSMsg(ctx context.Context, send chan []byte, msgType string, payload any) {
	select {
	case send <- encodeWSMsg(msgType, payload):
	case <-ctx.Done():
	}
}

// pushLatest queues msg, discarding the oldest queued message when the
// client has fallen behind.
func pushLatest(send chan []byte, msg []byte) {
	for {
		select {
		case send <- msg:
			return
		default:
		}
		select {
		case <-send:
		default:
		}
	}
}

func sendWSError(ctx context.Context, conn *websocket.Conn, message string) {
	conn.Write(ctx, websocket.MessageText, encodeWSMsg("error", errorPayload{Message: message}))
}
