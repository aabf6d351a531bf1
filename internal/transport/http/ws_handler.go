package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clip-trivia-service/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSHandler lets a player poll the game over a single websocket instead of
// separate HTTP requests. Every inbound message maps to one service call.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
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

type answerPayload struct {
	Question int `json:"question"`
	Answer   int `json:"answer"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code, codeErr := strconv.Atoi(r.URL.Query().Get("code"))
	player, playerErr := strconv.Atoi(r.URL.Query().Get("player"))
	if codeErr != nil || playerErr != nil {
		http.Error(w, "missing or invalid code or player", http.StatusBadRequest)
		return
	}
	if _, err := h.service.Lobby(r.Context(), code); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Int("code", code).Msg("ws write error")
				// unblocks ReadJSON in the read loop
				conn.Close()
				return
			}
		}
	}()

	h.readLoop(conn, r, code, player, send, writerDone)
	close(send)
	<-writerDone
}

// readLoop serves inbound messages until the peer goes away or the writer stops.
func (h *WSHandler) readLoop(conn *websocket.Conn, r *http.Request, code, player int, send chan<- outboundMessage, writerDone <-chan struct{}) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		select {
		case send <- h.dispatch(r, code, player, inbound):
		case <-writerDone:
			return
		}
	}
}

func (h *WSHandler) dispatch(r *http.Request, code, player int, inbound inboundMessage) outboundMessage {
	ctx := r.Context()
	var (
		payload any
		err     error
	)
	switch inbound.Type {
	case "lobby":
		payload, err = h.service.Lobby(ctx, code)
	case "start":
		payload, err = h.service.Start(ctx, code, player)
	case "question":
		payload, err = h.service.RequestQuestion(ctx, code, player)
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
		}
		payload, err = h.service.SubmitAnswer(ctx, code, player, p.Question, p.Answer)
	case "status":
		payload, err = h.service.AnswerStatus(ctx, code, player)
	case "summary":
		payload, err = h.service.Summary(ctx, code, player)
	default:
		return outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
	if err != nil {
		return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	return outboundMessage{Type: inbound.Type, Payload: payload}
}
