package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

type WSHandler struct {
	service    *app.QuizService
	hub        *Hub
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub, sendBuffer int) *WSHandler {
	return &WSHandler{
		service:    service,
		hub:        hub,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// conn is the per-connection state touched only by the read loop.
type conn struct {
	*client
	joined map[domain.SessionKey]struct{}
}

// ServeWS upgrades the request and dispatches the connection's messages to the
// quiz service. The caller identity is the userId query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "ws: upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	c := &conn{client: newClient(userID, h.sendBuffer), joined: make(map[domain.SessionKey]struct{})}
	ctx := context.WithoutCancel(r.Context())
	slog.DebugContext(ctx, "ws: connected", "conn", c.id, "user", userID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.DebugContext(ctx, "ws: write failed", "conn", c.id, "error", err)
				// keep draining so enqueue never blocks on a dead socket
				for range c.send {
				}
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c, inbound)
	}

	h.hub.DetachAll(c.client)
	for key := range c.joined {
		if err := h.service.Leave(ctx, key, userID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			slog.WarnContext(ctx, "ws: leave on disconnect failed", "conn", c.id, "session", key.String(), "error", err)
		}
	}
	close(c.send)
	<-writerDone
	slog.DebugContext(ctx, "ws: disconnected", "conn", c.id, "user", userID)
}

func (h *WSHandler) dispatch(ctx context.Context, c *conn, in inboundMessage) {
	switch in.Type {
	case msgStartSession:
		var p startPayload
		if !decode(c, in, &p) {
			return
		}
		res, err := h.service.Start(ctx, app.StartRequest{
			HostID:           c.userID,
			QuizID:           p.QuizID,
			Questions:        p.Questions,
			TimeLimitSeconds: p.TimeLimitSeconds,
			Participants:     p.Participants,
		})
		if err != nil {
			replyError(c, err)
			return
		}
		h.hub.Attach(res.SessionKey, c.client)
		reply(c, msgSessionCreated, res)

	case msgJoin:
		var p scopePayload
		if !decode(c, in, &p) {
			return
		}
		key := p.key()
		h.hub.Attach(key, c.client)
		if err := h.service.Join(ctx, key, c.userID); err != nil {
			if _, already := c.joined[key]; !already {
				h.hub.Detach(key, c.client)
			}
			replyError(c, err)
			return
		}
		c.joined[key] = struct{}{}
		reply(c, msgAck, ackPayload{Action: msgJoin, SessionID: key.SessionID})

	case msgLeave:
		var p scopePayload
		if !decode(c, in, &p) {
			return
		}
		key := p.key()
		err := h.service.Leave(ctx, key, c.userID)
		delete(c.joined, key)
		h.hub.Detach(key, c.client)
		if err != nil {
			replyError(c, err)
			return
		}
		reply(c, msgAck, ackPayload{Action: msgLeave, SessionID: key.SessionID})

	case msgSubmitAnswer:
		var p answerPayload
		if !decode(c, in, &p) {
			return
		}
		key := p.key()
		res, err := h.service.SubmitAnswer(ctx, key, c.userID, p.QuestionIndex, p.ChosenOption)
		if err != nil {
			replyError(c, err)
			return
		}
		// submitting joins the session, so the connection joins its scope too
		if _, ok := c.joined[key]; !ok {
			h.hub.Attach(key, c.client)
			c.joined[key] = struct{}{}
		}
		reply(c, msgAnswerResult, res)

	case msgAdvance:
		var p scopePayload
		if !decode(c, in, &p) {
			return
		}
		q, err := h.service.Advance(ctx, p.key(), c.userID)
		if err != nil {
			replyError(c, err)
			return
		}
		reply(c, msgAck, ackPayload{Action: msgAdvance, SessionID: p.SessionID, Question: &q})

	case msgEndSession:
		var p scopePayload
		if !decode(c, in, &p) {
			return
		}
		result, err := h.service.End(ctx, p.key(), c.userID)
		switch {
		case errors.Is(err, domain.ErrPersistFailed):
			reply(c, msgSessionEnded, sessionEndedPayload{Result: result, Warning: err.Error()})
		case err != nil:
			replyError(c, err)
		default:
			reply(c, msgSessionEnded, sessionEndedPayload{Result: result})
		}

	case msgGetLeaderboard:
		var p leaderboardQuery
		if !decode(c, in, &p) {
			return
		}
		ranked, err := h.service.Leaderboard(ctx, p.key(), p.TopN)
		if err != nil {
			replyError(c, err)
			return
		}
		reply(c, msgLeaderboard, leaderboardPayload{SessionID: p.SessionID, Ranked: ranked})

	default:
		replyError(c, fmt.Errorf("%w: unsupported message type %q", domain.ErrMalformedRequest, in.Type))
	}
}

func decode(c *conn, in inboundMessage, v any) bool {
	if len(in.Payload) == 0 {
		in.Payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(in.Payload, v); err != nil {
		replyError(c, fmt.Errorf("%w: invalid %s payload", domain.ErrMalformedRequest, in.Type))
		return false
	}
	return true
}

func reply[T any](c *conn, typ string, payload T) {
	msg, err := json.Marshal(outboundMessage[T]{Type: typ, Payload: payload})
	if err != nil {
		slog.Error("ws: marshal reply failed", "type", typ, "error", err)
		return
	}
	c.enqueue(msg)
}

func replyError(c *conn, err error) {
	reply(c, msgError, newErrorPayload(err))
}
