package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timelined/timeline"
)

func TestHTTPEvents(t *testing.T) {
	inputs := make(chan Input, 1)
	mux := newHTTPMux(nil, "/ws", inputs, testLogger())

	post := func(body string) (*httptest.ResponseRecorder, IPCResponse) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))
		var resp IPCResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
		return rec, resp
	}

	rec, resp := post(`{"type":"set_loop_enabled","data":{"enabled":true}}`)
	if rec.Code != http.StatusAccepted || resp.Status != "ok" {
		t.Fatalf("valid event: %d %+v", rec.Code, resp)
	}
	if in := <-inputs; in != (Dispatch{Event: timeline.SetLoopEnabled{Enabled: true}}) {
		t.Fatalf("unexpected input %#v", in)
	}

	rec, resp = post(`{"type":"set_tempo","data":{"bpm":"fast"}}`)
	if rec.Code != http.StatusBadRequest || resp.Status != "error" {
		t.Fatalf("bad payload: %d %+v", rec.Code, resp)
	}

	inputs <- UndoRequest{}
	rec, resp = post(`{"type":"undo"}`)
	if rec.Code != http.StatusServiceUnavailable || resp.Error != errInputQueueFull.Error() {
		t.Fatalf("full queue: %d %+v", rec.Code, resp)
	}
}

func TestHTTPEvents_MethodNotAllowed(t *testing.T) {
	mux := newHTTPMux(nil, "/ws", make(chan Input, 1), testLogger())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /events = %d, want 405", rec.Code)
	}
}

func TestHTTPState(t *testing.T) {
	d := startTestDaemon(t)
	mux := newHTTPMux(nil, "/ws", d.inputs, testLogger())

	d.inputs <- Dispatch{Event: timeline.SetTimeSignature{Numerator: 7, Denominator: 8}}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /state = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var snap StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Timeline.Tempo.Numerator != 7 || snap.Timeline.Tempo.Denominator != 8 {
		t.Fatalf("snapshot tempo = %+v", snap.Timeline.Tempo)
	}
	if snap.UndoDepth != 0 || len(snap.Clips) != 1 {
		t.Fatalf("undo=%d clips=%d", snap.UndoDepth, len(snap.Clips))
	}
}

func TestHTTPState_UnavailableWithoutDaemon(t *testing.T) {
	// Nobody reads the queue, so the request times out.
	mux := newHTTPMux(nil, "/ws", make(chan Input), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /state = %d, want 503", rec.Code)
	}
}

func TestStateWebsocket_SendsInitThenChanges(t *testing.T) {
	d := startTestDaemon(t)
	url := startWSServer(t, d, ServerConfig{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if typ, _ := readFrame(t, conn); typ != "state_init" {
		t.Fatalf("first frame = %q, want state_init", typ)
	}

	d.inputs <- Dispatch{Event: timeline.SetSnapEnabled{Enabled: false}}
	if typ, _ := readFrame(t, conn); typ != "state_changed" {
		t.Fatalf("next frame = %q, want state_changed", typ)
	}
}

// startWSServer serves the state websocket for d and returns its ws:// URL.
func startWSServer(t *testing.T, d *testDaemon, cfg ServerConfig) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ws := NewServer(testLogger(), d.inputs, cfg)
	go ws.Hub().Run(ctx)
	go RunBroadcaster(ctx, ws.Hub(), d.broadcasts.C(), testLogger())

	srv := httptest.NewServer(newHTTPMux(ws, "/ws", d.inputs, testLogger()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env.Type, env.Data
}

func TestStateWebsocket_InboundEvent(t *testing.T) {
	d := startTestDaemon(t)
	url := startWSServer(t, d, ServerConfig{})

	conn, _, err := websocket.DefaultDialer.Dial(url+"?topics=state", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if typ, _ := readFrame(t, conn); typ != "state_init" {
		t.Fatalf("first frame = %q, want state_init", typ)
	}

	if err := conn.WriteJSON(map[string]any{"type": "set_tempo", "data": map[string]any{"bpm": 90}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The tempo-locked clip moves too, but clip frames are filtered out.
	typ, data := readFrame(t, conn)
	if typ != "state_changed" {
		t.Fatalf("frame = %q, want state_changed", typ)
	}
	var changed wsStateChangedData
	if err := json.Unmarshal(data, &changed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if changed.State.Tempo.BPM != 90 {
		t.Fatalf("bpm = %v, want 90", changed.State.Tempo.BPM)
	}
}

func TestStateWebsocket_RejectsUnknownTopic(t *testing.T) {
	d := startTestDaemon(t)
	url := startWSServer(t, d, ServerConfig{})

	_, resp, err := websocket.DefaultDialer.Dial(url+"?topics=state,meters", nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("response = %+v, want 400", resp)
	}
}

func TestStateWebsocket_ReadOnly(t *testing.T) {
	d := startTestDaemon(t)
	url := startWSServer(t, d, ServerConfig{ReadOnly: true})

	conn, _, err := websocket.DefaultDialer.Dial(url+"?topics=clips", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// No state topic, so no state_init; the first frame is the reply.
	if err := conn.WriteJSON(map[string]string{"type": "start_playback"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if typ, _ := readFrame(t, conn); typ != "error" {
		t.Fatalf("frame = %q, want error", typ)
	}

	if err := conn.WriteJSON(map[string]any{"type": "subscribe", "data": map[string]any{"topics": []string{"state"}}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, data := readFrame(t, conn)
	if typ != "subscribed" || string(data) != `{"topics":["state"]}` {
		t.Fatalf("frame = %q %s, want subscribed", typ, data)
	}
}
