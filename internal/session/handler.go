package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/photoedit/internal/auth"
	"github.com/inamate/photoedit/internal/engine"
	"github.com/inamate/photoedit/internal/export"
	"github.com/inamate/photoedit/internal/store"
)

type Handler struct {
	hub            *Hub
	auth           *auth.Service
	originPatterns []string
}

func NewHandler(hub *Hub, authSvc *auth.Service, originPatterns []string) *Handler {
	return &Handler{hub: hub, auth: authSvc, originPatterns: originPatterns}
}

type createRequest struct {
	RootImage string `json:"rootImage,omitempty"`
}

type createResponse struct {
	SessionID string      `json:"sessionId"`
	Token     string      `json:"token"`
	State     store.State `json:"state"`
}

type stateResponse struct {
	Seq   int64       `json:"seq"`
	State store.State `json:"state"`
}

// Create handles POST /api/sessions. The body may name a root image to load.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	s := h.hub.Create()
	if req.RootImage != "" {
		if _, err := s.Apply(r.Context(), store.Operation{Type: store.OpImageRoot, URL: req.RootImage}); err != nil {
			h.hub.Remove(s.ID)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "could not load root image"})
			return
		}
	}

	token, err := h.auth.IssueSessionToken(s.ID)
	if err != nil {
		slog.Error("issue session token", "error", err)
		h.hub.Remove(s.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	st, _ := s.State()
	writeJSON(w, http.StatusCreated, createResponse{SessionID: s.ID, Token: token, State: st})
}

// State handles GET /api/sessions/{sessionId}/state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, seq := s.State()
	writeJSON(w, http.StatusOK, stateResponse{Seq: seq, State: st})
}

// Submit handles POST /api/sessions/{sessionId}/ops.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var op store.Operation
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ack, err := s.Apply(r.Context(), op)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, OperationNackPayload{OperationID: op.ID, Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// Delete handles DELETE /api/sessions/{sessionId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.Remove(mux.Vars(r)["sessionId"]); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles POST /api/sessions/{sessionId}/export, rendering the stage
// on the server.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req engine.ExportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	var buf bytes.Buffer
	filename, err := s.Engine().Export(&buf, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrUnsupportedFormat) || errors.Is(err, export.ErrEmptyRegion) {
			status = http.StatusBadRequest
		} else {
			slog.Error("export session", "error", err, "session", s.ID)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	f, _ := export.ParseFormat(req.Format)
	w.Header().Set("Content-Type", string(f))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ServeWS handles /ws/session/{sessionId}?token=... and runs the client
// pumps until the connection ends.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	tokenSession, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if tokenSession != sessionID {
		http.Error(w, "token not valid for this session", http.StatusForbidden)
		return
	}
	if _, err := h.hub.Get(sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, sessionID, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.hub.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
