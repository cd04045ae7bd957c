package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/inamate/photoedit/internal/auth"
	"github.com/inamate/photoedit/internal/engine"
	"github.com/inamate/photoedit/internal/render"
	"github.com/inamate/photoedit/internal/store"
)

func newTestHub(t *testing.T, ttl time.Duration) *Hub {
	t.Helper()
	return newTestHubWithLoader(t, ttl, nil)
}

func newTestHubWithLoader(t *testing.T, ttl time.Duration, loader store.ImageLoader) *Hub {
	t.Helper()
	fonts, err := render.NewFontBook()
	if err != nil {
		t.Fatalf("NewFontBook: %v", err)
	}
	h := NewHub(func() *engine.Engine {
		return engine.NewEngine(store.New(loader, store.WithStage(800, 600)), fonts)
	}, ttl)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func addText(text string) store.Operation {
	return store.Operation{
		ID:     "op1",
		Type:   store.OpWidgetAdd,
		Widget: json.RawMessage(`{"type":"text","text":"` + text + `"}`),
	}
}

func TestHubLifecycle(t *testing.T) {
	h := newTestHub(t, 0)
	s := h.Create()

	got, err := h.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := h.Remove(s.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := h.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove = %v, want ErrNotFound", err)
	}
	if err := h.Remove(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}
}

func TestApplySequence(t *testing.T) {
	h := newTestHub(t, 0)
	s := h.Create()
	ctx := context.Background()

	ack, err := s.Apply(ctx, addText("hi"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ack.ServerSeq != 1 || ack.OperationID != "op1" || ack.WidgetID == "" {
		t.Errorf("ack = %+v", ack)
	}

	if _, err := s.Apply(ctx, store.Operation{Type: "widget.explode"}); !errors.Is(err, store.ErrUnknownOperation) {
		t.Errorf("Apply unknown = %v, want ErrUnknownOperation", err)
	}
	if seq := s.Seq(); seq != 1 {
		t.Errorf("seq after rejected op = %d, want 1", seq)
	}

	st, seq := s.State()
	if seq != 1 || len(st.Widgets) != 1 {
		t.Errorf("state = %d widgets at seq %d", len(st.Widgets), seq)
	}
}

// blockingLoader holds every Load until release is closed.
type blockingLoader struct {
	started     chan struct{}
	release     chan struct{}
	startedOnce sync.Once
}

func (l *blockingLoader) Load(ctx context.Context, _ string) (image.Image, error) {
	l.startedOnce.Do(func() { close(l.started) })
	select {
	case <-l.release:
		return image.NewNRGBA(image.Rect(0, 0, 40, 20)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestApplyDoesNotWaitForImageDecode(t *testing.T) {
	loader := &blockingLoader{started: make(chan struct{}), release: make(chan struct{})}
	h := newTestHubWithLoader(t, 0, loader)
	s := h.Create()
	ctx := context.Background()

	type result struct {
		ack OperationAckPayload
		err error
	}
	imageDone := make(chan result, 1)
	go func() {
		ack, err := s.Apply(ctx, store.Operation{Type: store.OpImageAdd, URL: "/assets/a.png"})
		imageDone <- result{ack, err}
	}()
	<-loader.started

	textDone := make(chan result, 1)
	go func() {
		ack, err := s.Apply(ctx, addText("x"))
		s.State()
		textDone <- result{ack, err}
	}()
	select {
	case r := <-textDone:
		if r.err != nil {
			t.Fatalf("text Apply: %v", r.err)
		}
		if r.ack.ServerSeq != 1 {
			t.Errorf("text seq = %d, want 1", r.ack.ServerSeq)
		}
	case <-time.After(2 * time.Second):
		close(loader.release)
		t.Fatal("text op blocked behind image decode")
	}

	close(loader.release)
	r := <-imageDone
	if r.err != nil {
		t.Fatalf("image Apply: %v", r.err)
	}
	if r.ack.ServerSeq != 2 || r.ack.WidgetID == "" {
		t.Errorf("image ack = %+v", r.ack)
	}
	st, seq := s.State()
	if seq != 2 || len(st.Widgets) != 2 {
		t.Errorf("state = %d widgets at seq %d, want 2 at 2", len(st.Widgets), seq)
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	h := newTestHub(t, time.Minute)
	idle := h.Create()
	fresh := h.Create()

	idle.mu.Lock()
	idle.lastActive = time.Now().Add(-2 * time.Minute)
	idle.mu.Unlock()

	h.sweep(time.Now())

	if _, err := h.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session kept: %v", err)
	}
	if _, err := h.Get(fresh.ID); err != nil {
		t.Errorf("fresh session removed: %v", err)
	}
}

type wsFixture struct {
	hub   *Hub
	authn *auth.Service
	srv   *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := &wsFixture{hub: newTestHub(t, 0), authn: auth.NewService("secret", time.Hour)}
	h := NewHandler(f.hub, f.authn, nil)

	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", h.Create).Methods("POST")
	api := r.PathPrefix("/api/sessions/{sessionId}").Subrouter()
	api.Use(f.authn.AuthMiddleware)
	api.HandleFunc("/state", h.State).Methods("GET")
	api.HandleFunc("/ops", h.Submit).Methods("POST")
	api.HandleFunc("/export", h.Export).Methods("POST")
	api.HandleFunc("", h.Delete).Methods("DELETE")
	r.HandleFunc("/ws/session/{sessionId}", h.ServeWS)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *wsFixture) create(t *testing.T) createResponse {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func (f *wsFixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func writeMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg, err := newMessage(typ, "", 0, payload)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(msg)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebSocketSession(t *testing.T) {
	f := newWSFixture(t)
	created := f.create(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/session/" + created.SessionID + "?token=" + created.Token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if msg := readMessage(t, ctx, conn); msg.Type != TypeWelcome {
		t.Fatalf("first message = %s, want welcome", msg.Type)
	}
	if msg := readMessage(t, ctx, conn); msg.Type != TypeStateSync || msg.Seq != 0 {
		t.Fatalf("second message = %s seq %d, want state.sync at 0", msg.Type, msg.Seq)
	}

	writeMessage(t, ctx, conn, TypeOpSubmit, OperationSubmitPayload{Operation: addText("hello")})

	sync := readMessage(t, ctx, conn)
	if sync.Type != TypeStateSync || sync.Seq != 1 {
		t.Fatalf("got %s seq %d, want state.sync at 1", sync.Type, sync.Seq)
	}
	var st StateSyncPayload
	if err := json.Unmarshal(sync.Payload, &st); err != nil {
		t.Fatal(err)
	}
	if len(st.State.Widgets) != 1 || len(st.State.SelectedWidgetIDs) != 1 {
		t.Errorf("synced state = %d widgets, %v selected", len(st.State.Widgets), st.State.SelectedWidgetIDs)
	}

	ack := readMessage(t, ctx, conn)
	if ack.Type != TypeOpAck || ack.Seq != 1 {
		t.Fatalf("got %s seq %d, want op.ack at 1", ack.Type, ack.Seq)
	}

	writeMessage(t, ctx, conn, TypeOpSubmit, OperationSubmitPayload{Operation: store.Operation{ID: "bad", Type: "widget.explode"}})
	nack := readMessage(t, ctx, conn)
	var np OperationNackPayload
	json.Unmarshal(nack.Payload, &np)
	if nack.Type != TypeOpNack || np.OperationID != "bad" {
		t.Errorf("got %s %+v, want op.nack for bad", nack.Type, np)
	}

	writeMessage(t, ctx, conn, "presence.update", struct{}{})
	if msg := readMessage(t, ctx, conn); msg.Type != TypeError {
		t.Errorf("unknown type reply = %s, want error", msg.Type)
	}
}

func TestWebSocketRejectsForeignToken(t *testing.T) {
	f := newWSFixture(t)
	a := f.create(t)
	b := f.create(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/session/" + a.SessionID + "?token=" + b.Token
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		t.Fatal("dial with another session's token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestHTTPOperations(t *testing.T) {
	f := newWSFixture(t)
	c := f.create(t)
	base := "/api/sessions/" + c.SessionID

	resp := f.do(t, http.MethodPost, base+"/ops", c.Token, addText("x"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, base+"/ops", c.Token, store.Operation{Type: store.OpUITab, Tab: "paint"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid tab status = %d, want 400", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, base+"/state", c.Token, nil)
	var sr stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if sr.Seq != 1 || len(sr.State.Widgets) != 1 {
		t.Errorf("state = seq %d with %d widgets", sr.Seq, len(sr.State.Widgets))
	}

	resp = f.do(t, http.MethodPost, base+"/export", c.Token, engine.ExportRequest{Format: "png", Scale: 0.25})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "export.png") {
		t.Errorf("Content-Disposition = %q", got)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("export size = %v, want 200x150", b)
	}

	resp = f.do(t, http.MethodDelete, base, c.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, base+"/state", c.Token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("state after delete = %d, want 404", resp.StatusCode)
	}
}
