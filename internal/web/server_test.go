package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/soundscape/internal/logging"
	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/score"
	"github.com/sweeney/soundscape/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTracker() *status.Tracker {
	cfg := status.Config{
		PollMs:       10000,
		HeartbeatMs:  900000,
		LockMs:       60000,
		HysteresisMs: 3000,
		Fences:       4,
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":8080",
	}
	tr := status.NewTracker(start, cfg)
	tr.SetClock(func() time.Time { return start.Add(90 * time.Second) })
	return tr
}

func newTestServer(t *testing.T, hub *Hub) (*httptest.Server, *status.Tracker) {
	t.Helper()
	tr := newTracker()
	srv := New(":0", tr, hub, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func updateSunny(tr *status.Tracker) {
	ctx := logic.NewSnapshot(logic.GeoPark, logic.TimeDaytime, logic.WeatherClear,
		logic.MotionWalking, logic.CadenceOf(120), start.Add(80*time.Second))
	cls := logic.Classification{Current: logic.SceneSunnyWalk, Locked: true, LockRemaining: 50 * time.Second}
	plan := score.Plan{Pad: 0.5, Arp: 0.36, Beat: 0.52, FX: 0.2, FieldNoise: 0.2,
		BaseBPM: 98.5, TempoFollowRate: 0.5, Filter: 0.5, Reverb: 0.42}
	tr.Update(ctx, cls, plan, true, map[logic.SceneID]int{logic.SceneSunnyWalk: 1})
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	updateSunny(tr)
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Scene.Current != "sunny_walk" {
		t.Errorf("Scene.Current: got %q", sj.Status.Scene.Current)
	}
	if sj.Status.Plan == nil || sj.Status.Plan.BaseBPM != 98.5 {
		t.Errorf("Plan: got %+v", sj.Status.Plan)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds: got %d, want 90", sj.Status.UptimeSeconds)
	}
	if sj.Status.Counts["sunny_walk"] != 1 {
		t.Errorf("Counts: got %v", sj.Status.Counts)
	}
}

func TestHTMLOverlaySections(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	updateSunny(tr)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{
		"<h2>Context</h2>", "<h2>Scene</h2>", "<h2>Playback</h2>",
		">park<", ">walking<", ">120<",
		">sunny_walk<", "50.0s",
		"98.5 bpm", ">0.52<",
		"1m 30s",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "new WebSocket") {
		t.Error("live script should be omitted without a hub")
	}
}

func TestHTMLBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := get(t, ts.URL+"/index.html")
	if !strings.Contains(body, "waiting for first tick") {
		t.Error("expected placeholder for missing context")
	}
	if !strings.Contains(body, "no scene confirmed yet") {
		t.Error("expected placeholder for missing plan")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := get(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestWSDisabledWithoutHub(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := get(t, ts.URL+"/ws")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env.Type, env.Data
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSInitAndBroadcast(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts, tr := newTestServer(t, hub)
	updateSunny(tr)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, data := readEnvelope(t, conn)
	if typ != TypeStatusInit {
		t.Fatalf("first frame: got %q, want %q", typ, TypeStatusInit)
	}
	var inner status.StatusInner
	if err := json.Unmarshal(data, &inner); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if inner.Scene.Current != "sunny_walk" {
		t.Errorf("init scene: got %q", inner.Scene.Current)
	}

	waitForClients(t, hub, 1)
	hub.Publish(TypeSceneConfirmed, start, map[string]string{"scene": "cafe_stay"})

	typ, data = readEnvelope(t, conn)
	if typ != TypeSceneConfirmed {
		t.Errorf("broadcast type: got %q", typ)
	}
	if !strings.Contains(string(data), "cafe_stay") {
		t.Errorf("broadcast data: got %s", data)
	}
}

func TestHubFansOutToEveryClient(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts, _ := newTestServer(t, hub)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		defer conn.Close()
		readEnvelope(t, conn) // init
		conns = append(conns, conn)
	}
	waitForClients(t, hub, 3)

	hub.Publish(TypePlan, start, map[string]float64{"base_bpm": 112})
	for i, conn := range conns {
		if typ, _ := readEnvelope(t, conn); typ != TypePlan {
			t.Errorf("client %d: got %q, want %q", i, typ, TypePlan)
		}
	}

	conns[0].Close()
	waitForClients(t, hub, 2)
}

func TestHubShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts, _ := newTestServer(t, hub)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readEnvelope(t, conn)
	waitForClients(t, hub, 1)

	cancel()
	waitForClients(t, hub, 0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed after hub shutdown")
	}
}

func TestMarshalEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	msg, err := marshalEnvelope(TypeStatus, at, map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"status","ts":"2026-03-01T00:00:00Z","data":{"n":1}}`
	if string(msg) != want {
		t.Errorf("got %s, want %s", msg, want)
	}
}
