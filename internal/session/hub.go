package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/photoedit/internal/engine"
	"github.com/inamate/photoedit/internal/store"
	"github.com/inamate/photoedit/internal/typeid"
)

var ErrNotFound = errors.New("session not found")

// Hub owns every live session and the websocket client attached to each.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session // sessionID -> session

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	newEngine func() *engine.Engine
	idleTTL   time.Duration
}

// NewHub creates a hub. Sessions without a client for longer than idleTTL
// are closed; zero keeps them until removed.
func NewHub(newEngine func() *engine.Engine, idleTTL time.Duration) *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		newEngine:  newEngine,
		idleTTL:    idleTTL,
	}
}

func (h *Hub) Run(ctx context.Context) {
	var sweep <-chan time.Time
	if h.idleTTL > 0 {
		ticker := time.NewTicker(max(h.idleTTL/4, time.Second))
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case now := <-sweep:
			h.sweep(now)
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.done:
			return
		}
	}
}

// Stop closes every session. Clients still connected are disconnected.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		sessions := h.sessions
		h.sessions = make(map[string]*Session)
		h.mu.Unlock()

		for _, s := range sessions {
			if c := s.close(); c != nil {
				c.close()
			}
		}
		slog.Info("hub stopped", "sessions", len(sessions))
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Create starts a new session.
func (h *Hub) Create() *Session {
	s := newSession(typeid.NewSessionID(), h.newEngine(), time.Now())

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	slog.Info("session created", "session", s.ID)
	return s
}

func (h *Hub) Get(sessionID string) (*Session, error) {
	if err := typeid.Validate(sessionID, typeid.PrefixSession); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return s, nil
}

// Remove closes a session and disconnects its client.
func (h *Hub) Remove(sessionID string) error {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	if c := s.close(); c != nil {
		c.close()
	}
	slog.Info("session removed", "session", sessionID)
	return nil
}

// Len is the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) sweep(now time.Time) {
	cutoff := now.Add(-h.idleTTL)

	h.mu.RLock()
	var expired []string
	for id, s := range h.sessions {
		if s.idleSince(cutoff) {
			expired = append(expired, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range expired {
		if err := h.Remove(id); err == nil {
			slog.Info("session expired", "session", id)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	s, err := h.Get(client.SessionID)
	if err != nil {
		client.sendError(err.Error())
		client.close()
		return
	}

	if prev := s.attach(client); prev != nil {
		prev.close()
		slog.Info("client replaced", "session", s.ID, "client", prev.ClientID)
	}

	welcome, _ := newMessage(TypeWelcome, s.ID, 0, WelcomePayload{SessionID: s.ID, ClientID: client.ClientID})
	client.Send(welcome)
	h.sendState(client, s)

	slog.Info("client joined", "session", s.ID, "client", client.ClientID)
}

func (h *Hub) removeClient(client *Client) {
	s, err := h.Get(client.SessionID)
	if err != nil {
		return
	}
	if s.detach(client) {
		client.close()
		slog.Info("client left", "session", s.ID, "client", client.ClientID)
	}
}

func (h *Hub) sendState(client *Client, s *Session) {
	st, seq := s.State()
	msg, err := newMessage(TypeStateSync, s.ID, seq, StateSyncPayload{State: st})
	if err != nil {
		slog.Error("marshal state", "error", err, "session", s.ID)
		return
	}
	client.Send(msg)
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	s, err := h.Get(sender.SessionID)
	if err != nil {
		sender.sendError(err.Error())
		return
	}

	switch msg.Type {
	case TypeOpSubmit:
		h.handleOpSubmit(ctx, sender, s, msg)
	case TypeStateRequest:
		h.sendState(sender, s)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "session", s.ID)
		sender.sendError("unknown message type: " + msg.Type)
	}
}

func (h *Hub) handleOpSubmit(ctx context.Context, sender *Client, s *Session, msg *Message) {
	var payload OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		slog.Warn("invalid op payload", "error", err, "session", s.ID)
		sender.sendNack("", "invalid payload")
		return
	}

	switch payload.Operation.Type {
	case store.OpImageAdd, store.OpImageRoot:
		// Decodes can take up to the fetch timeout; keep reading meanwhile.
		go h.applyAndAck(ctx, sender, s, payload.Operation)
	default:
		h.applyAndAck(ctx, sender, s, payload.Operation)
	}
}

func (h *Hub) applyAndAck(ctx context.Context, sender *Client, s *Session, op store.Operation) {
	ack, err := s.Apply(ctx, op)
	if err != nil {
		slog.Warn("operation rejected", "error", err, "op", op.Type, "session", s.ID)
		sender.sendNack(op.ID, err.Error())
		return
	}

	out, _ := newMessage(TypeOpAck, s.ID, ack.ServerSeq, ack)
	sender.Send(out)
}
