// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pokdeng/internal/game"
	"github.com/jason-s-yu/pokdeng/internal/middleware"
	"github.com/jason-s-yu/pokdeng/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Error kinds reported to clients alongside the message.
const (
	KindRateLimit       = "RATE_LIMIT"
	KindConnectionLimit = "CONNECTION_LIMIT"
	KindValidation      = "VALIDATION"
	KindNoSession       = "NO_SESSION"
	KindNotHost         = "NOT_HOST"
	KindGame            = "GAME"
	KindBadRequest      = "BAD_REQUEST"
)

// GameMessage is an inbound WebSocket frame.
type GameMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// errorMessage is the frame sent to the acting connection when its action fails.
type errorMessage struct {
	Type    game.EventType `json:"type"`
	Message string         `json:"message"`
	Kind    string         `json:"kind"`
}

// WSOptions configures the game WebSocket endpoint.
type WSOptions struct {
	RateMax        int
	RateWindow     time.Duration
	Validator      Validator
	AllowedOrigins []string
	GlobalSession  bool // session ids sent by clients are ignored, so not validated
}

// wsConn is the per-socket state of the read loop.
type wsConn struct {
	client  *client
	limiter *rate.Limiter
	hub     *Hub
	disp    *game.Dispatcher
	opts    WSOptions
	log     logrus.FieldLogger
}

// GameWSHandler upgrades the request, admits the connection against the
// connection caps and runs its read loop. Leaving the session on disconnect
// is the same as an explicit leave.
func GameWSHandler(logger logrus.FieldLogger, hub *Hub, disp *game.Dispatcher, opts WSOptions) http.HandlerFunc {
	patterns := originPatterns(opts.AllowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			logger.Warnf("WebSocket accept error from %s: %v", r.RemoteAddr, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		connID := uuid.NewString()
		cl := newClient(connID, remoteHost(r), c)
		if err := hub.admit(cl); err != nil {
			logger.WithFields(logrus.Fields{"remote": r.RemoteAddr, "live": hub.Count()}).Warn("Connection rejected: " + err.Error())
			writeRejection(r.Context(), c, err)
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
		middleware.LogWebSocketConnect(logger, connID, r.RemoteAddr)
		go cl.writePump(logger)

		ws := &wsConn{
			client:  cl,
			limiter: newLimiter(opts.RateMax, opts.RateWindow),
			hub:     hub,
			disp:    disp,
			opts:    opts,
			log:     logger.WithField("conn", connID),
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		readErr := ws.readLoop(ctx)

		envs, _ := disp.Handle(connID, models.GameAction{ActionType: game.ActionLeave})
		hub.Deliver(envs)
		hub.remove(cl)
		middleware.LogWebSocketDisconnect(logger, connID, r.RemoteAddr, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readLoop runs until the socket closes. Returns nil on a clean close.
func (ws *wsConn) readLoop(ctx context.Context) error {
	for {
		msgType, data, err := ws.client.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case <-ws.client.closed:
			return errors.New("write side closed")
		default:
		}

		if !ws.limiter.Allow() {
			ws.log.Warn("Rate limit exceeded")
			ws.sendError("Too many requests, please slow down", KindRateLimit)
			continue
		}
		if msgType != websocket.MessageText {
			ws.log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.log.Warnf("Invalid JSON received: %v", err)
			ws.sendError("Invalid JSON format.", KindBadRequest)
			continue
		}
		ws.handle(msg)
	}
}

// handle validates one message and dispatches it. The dispatcher has
// released every session lock by the time envelopes are delivered.
func (ws *wsConn) handle(msg GameMessage) {
	if msg.Type == "ping" {
		ws.hub.SendTo(ws.client.id, map[string]string{"type": "pong"})
		return
	}

	action := models.GameAction{ActionType: msg.Type, Payload: msg.Payload}
	if action.Payload == nil {
		action.Payload = make(map[string]interface{})
	}
	if err := ws.sanitize(&action); err != nil {
		ws.log.WithField("action", msg.Type).Warnf("Rejected input: %v", err)
		ws.sendError(err.Error(), KindValidation)
		return
	}

	ws.log.WithField("action", msg.Type).Debug("Received action")
	envs, err := ws.disp.Handle(ws.client.id, action)
	if err != nil {
		ws.log.WithField("action", msg.Type).Warnf("Action failed: %v", err)
		ws.sendError(err.Error(), errorKind(err))
		return
	}
	ws.hub.Deliver(envs)
}

// sanitize cleans the free-text fields of an action in place.
func (ws *wsConn) sanitize(action *models.GameAction) error {
	switch action.ActionType {
	case game.ActionJoin, game.ActionJoinGame:
		name, err := ws.opts.Validator.Name(action.String("playerName"))
		if err != nil {
			return err
		}
		action.Payload["playerName"] = name
		if !ws.opts.GlobalSession && !validSessionID(action.String("sessionId")) {
			return ErrInvalidSessionID
		}
	case game.ActionChat, game.ActionCommand:
		msg, err := ws.opts.Validator.Chat(action.String("message"))
		if err != nil {
			return err
		}
		action.Payload["message"] = msg
	}
	return nil
}

func (ws *wsConn) sendError(message, kind string) {
	ws.hub.SendTo(ws.client.id, errorMessage{Type: game.EventError, Message: message, Kind: kind})
}

// writeRejection tells a socket turned away at admission why, before it is closed.
func writeRejection(ctx context.Context, c *websocket.Conn, err error) {
	data, _ := json.Marshal(errorMessage{Type: game.EventError, Message: err.Error(), Kind: KindConnectionLimit})
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		return KindNoSession
	case errors.Is(err, game.ErrNotHost):
		return KindNotHost
	case errors.Is(err, game.ErrInvalidName), errors.Is(err, game.ErrInvalidBetAmount):
		return KindValidation
	case errors.Is(err, game.ErrUnknownAction):
		return KindBadRequest
	}
	return KindGame
}

// newLimiter allows max events per window, with bursts up to max.
func newLimiter(max int, window time.Duration) *rate.Limiter {
	if max <= 0 || window <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(max)), max)
}

// originPatterns turns configured origins ("http://localhost:3000") into the
// host patterns websocket.Accept matches against.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

// remoteHost is the client IP, used for the per-address connection cap.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
