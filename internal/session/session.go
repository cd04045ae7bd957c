package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/photoedit/internal/engine"
	"github.com/inamate/photoedit/internal/store"
	"github.com/inamate/photoedit/internal/typeid"
)

// Session is one browser tab's editor. Operations are applied one at a time
// and numbered with a server sequence.
type Session struct {
	ID string

	engine *engine.Engine

	opMu sync.Mutex // serializes Apply
	seq  int64

	mu         sync.Mutex
	client     *Client
	lastActive time.Time
	closed     bool
}

func newSession(id string, e *engine.Engine, now time.Time) *Session {
	return &Session{ID: id, engine: e, lastActive: now}
}

// Engine returns the session's editing engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Seq is the sequence number of the last applied operation.
func (s *Session) Seq() int64 {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.seq
}

// Apply runs op against the store. Operations without an id get one. Image
// fetch and decode run before the op is queued, so other ops and state
// reads proceed meanwhile. On success the attached client, if any, receives
// a state.sync carrying the new sequence number.
func (s *Session) Apply(ctx context.Context, op store.Operation) (OperationAckPayload, error) {
	s.touch()
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	pending, err := s.engine.Store().Prepare(ctx, op)
	if err != nil {
		return OperationAckPayload{}, fmt.Errorf("apply %s: %w", op.Type, err)
	}

	s.opMu.Lock()
	res, err := pending.Commit()
	if err != nil {
		s.opMu.Unlock()
		return OperationAckPayload{}, fmt.Errorf("apply %s: %w", op.Type, err)
	}
	s.seq++
	seq := s.seq
	s.opMu.Unlock()

	s.pushState(seq)
	return OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: time.Now().UnixMilli(),
		WidgetID:        res.WidgetID,
	}, nil
}

// State returns the current snapshot and the sequence it reflects.
func (s *Session) State() (store.State, int64) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.engine.Snapshot(), s.seq
}

func (s *Session) pushState(seq int64) {
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()
	if c == nil {
		return
	}
	msg, err := newMessage(TypeStateSync, s.ID, seq, StateSyncPayload{State: s.engine.Snapshot()})
	if err != nil {
		slog.Error("marshal state", "error", err, "session", s.ID)
		return
	}
	c.Send(msg)
}

// attach makes c the session's client and returns the client it replaced.
func (s *Session) attach(c *Client) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.client
	s.client = c
	s.lastActive = time.Now()
	return prev
}

// detach clears c if it is still the session's client.
func (s *Session) detach(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != c {
		return false
	}
	s.client = nil
	s.lastActive = time.Now()
	return true
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// idleSince reports whether the session has no client and has not been
// used since t.
func (s *Session) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client == nil && s.lastActive.Before(t)
}

// close ends the session and returns the client to disconnect, if any.
func (s *Session) close() *Client {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	c := s.client
	s.client = nil
	s.mu.Unlock()

	s.engine.Close()
	return c
}
