package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"quiz-play-service/internal/domain"
)

// WSHandler runs a play session over a websocket: answers, hints and finish
// go in, grading results and balance updates come out.
type WSHandler struct {
	svc      Services
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(svc Services, allowedOrigins []string, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type joinedPayload struct {
	Session domain.GameSession `json:"session"`
	Balance int64              `json:"balance"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS expects ?sessionId=..&token=.. since browsers cannot set headers on upgrade.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Tokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("sessionId"), 10, 64)
	if err != nil {
		writeError(w, r, h.logger, errInvalidQuery("sessionId"))
		return
	}
	ctx := r.Context()
	session, err := h.svc.Sessions.Get(ctx, p.UserID, sessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	balance, err := h.svc.Ledger.Balance(ctx, p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.svc.Feed.Subscribe(p.UserID)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "balance", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	joined := outboundMessage{Type: "joined", Payload: joinedPayload{Session: session, Balance: balance}}
	if enqueue(send, writerDone, joined) {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				break
			}
			if !enqueue(send, writerDone, h.handle(r, p.UserID, sessionID, inbound)) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer. It reports false once the writer has
// stopped, instead of blocking on a buffer nobody drains.
func enqueue(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *WSHandler) handle(r *http.Request, userID, sessionID int64, in inboundMessage) outboundMessage {
	ctx := r.Context()
	switch in.Type {
	case "answer":
		var req answerRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return wsError("invalid answer payload")
		}
		res, err := h.svc.Grader.GradeAnswer(ctx, userID, req.submission(sessionID))
		if err != nil {
			return h.failure(r, err)
		}
		return outboundMessage{Type: "answerResult", Payload: res}
	case "hint":
		var req hintRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return wsError("invalid hint payload")
		}
		hint, err := h.svc.Hints.PurchaseHint(ctx, userID, req.QuestionID)
		if err != nil {
			return h.failure(r, err)
		}
		return outboundMessage{Type: "hint", Payload: hint}
	case "finish":
		session, err := h.svc.Sessions.Finish(ctx, userID, sessionID)
		if err != nil {
			return h.failure(r, err)
		}
		return outboundMessage{Type: "finished", Payload: session}
	default:
		return wsError("unsupported message type")
	}
}

func (h *WSHandler) failure(r *http.Request, err error) outboundMessage {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "ws request failed", "error", err)
		return wsError("internal server error")
	}
	return wsError(err.Error())
}

func wsError(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
