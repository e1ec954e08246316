// Package webchat is the browser chat transport over the booking conversation.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// Handler manages web chat connections and messages.
type Handler struct {
	service conversation.Service
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // session id -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "reset", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Phase     string           `json:"phase,omitempty"`
	Completed bool             `json:"completed,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(service conversation.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades GET /chat/ws?session= and relays turns in real time.
// A missing or expired session id opens a new session.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	wsc := &wsConn{conn: conn}

	sessionID, err := h.resume(ctx, wsc, r.URL.Query().Get("session"))
	if err != nil {
		h.logger.Error("webchat: failed to open session", "error", err)
		_ = wsc.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}

	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = wsc.send(OutboundMessage{Type: "pong"})
		case "reset":
			resp, err := h.service.Reset(ctx, sessionID)
			h.deliver(sessionID, resp, err)
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			h.SendToSession(sessionID, OutboundMessage{Type: "typing"})
			resp, err := h.service.Message(ctx, sessionID, msg.Text)
			h.deliver(sessionID, resp, err)
		}
	}
}

// resume announces the session and replays its transcript, starting a new
// session when id is empty or unknown.
func (h *Handler) resume(ctx context.Context, wsc *wsConn, id string) (string, error) {
	if id != "" {
		state, err := h.service.Get(ctx, id)
		switch {
		case err == nil:
			_ = wsc.send(OutboundMessage{Type: "session", SessionID: id, Phase: string(state.Phase), Completed: state.Completed})
			_ = wsc.send(OutboundMessage{Type: "history", Messages: historyOf(state.Transcript)})
			return id, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return "", err
		}
	}

	resp, err := h.service.Start(ctx)
	if err != nil {
		return "", err
	}
	_ = wsc.send(OutboundMessage{Type: "session", SessionID: resp.SessionID, Phase: string(resp.Phase)})
	for _, out := range replies(resp) {
		_ = wsc.send(out)
	}
	return resp.SessionID, nil
}

func (h *Handler) deliver(sessionID string, resp conversation.Response, err error) {
	if err != nil {
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		h.SendToSession(sessionID, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}
	for _, out := range replies(resp) {
		h.SendToSession(sessionID, out)
	}
}

// SendToSession sends a message to an active WebSocket session.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := wsc.send(msg); err != nil {
		h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
	}
}

// MessageRequest is the body of POST /chat/message.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// HandleMessage is the HTTP fallback for sending messages. Replies are
// returned in the body and also pushed to an open socket for the session.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if req.SessionID == "" {
		started, err := h.service.Start(ctx)
		if err != nil {
			h.fail(w, "webchat: failed to start session", err)
			return
		}
		req.SessionID = started.SessionID
	}

	resp, err := h.service.Message(ctx, req.SessionID, req.Text)
	if err != nil {
		h.fail(w, "webchat: failed to process message", err)
		return
	}
	for _, out := range replies(resp) {
		h.SendToSession(req.SessionID, out)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleHistory returns the transcript for GET /chat/history?session=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	state, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		h.fail(w, "webchat: failed to load history", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": historyOf(state.Transcript)})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, http.StatusText(status), status)
}
