package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"projectforge-service/internal/app"
	"projectforge-service/internal/domain"
)

type WSHandler struct {
	chat     *app.ChatService
	upgrader websocket.Upgrader
}

func NewWSHandler(chat *app.ChatService) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type postPayload struct {
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the chat
// channel. Every change pushes the full ordered message set; the client's
// only job is to replace its rendered copy.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	userID := r.URL.Query().Get("userId")
	userName := r.URL.Query().Get("name")
	photoURL := r.URL.Query().Get("photo")
	if channel == "" || userID == "" || userName == "" {
		http.Error(w, "missing channel, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.chat.Subscribe(r.Context(), channel)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "messages", Payload: snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "post":
			var payload postPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid post payload"}}
				continue
			}
			posted, err := h.chat.Post(r.Context(), channel, userID, userName, photoURL, payload.Text, payload.ReplyTo)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: wsErrorMessage(err)}}
				continue
			}
			send <- outboundMessage[any]{Type: "posted", Payload: posted}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// wsErrorMessage keeps validation messages user-facing and everything else
// generic.
func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUnauthenticated):
		return err.Error()
	default:
		return "failed to post message, try again"
	}
}
