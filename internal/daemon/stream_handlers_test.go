package daemon_test

import (
	"image/color"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"

	"easel/internal/progress"
	"easel/internal/testsupport"
)

func TestWebSocketStream(t *testing.T) {
	f := testsupport.StartDaemon(t, testsupport.NewConfig(t))
	f.Textgen.Started = make(chan struct{})
	f.Textgen.Release = make(chan struct{})
	image := testsupport.PNGImage(t, 12, 12, color.White)

	processDone := make(chan *http.Response, 1)
	go func() {
		processDone <- processRequest(t, f.Addr, image, "ws-run", map[string]string{"texts": "true"})
	}()

	<-f.Textgen.Started
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+f.Addr+"/api/runs/ws-run/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	close(f.Textgen.Release)

	var events []progress.Event
	for {
		var event progress.Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read event: %v", err)
		}
		events = append(events, event)
		if event.Terminal() {
			break
		}
	}

	if len(events) == 0 || events[0].Type != progress.EventConnected {
		t.Fatalf("expected connected event first, got %#v", events)
	}
	last := events[len(events)-1]
	if last.Type != progress.EventDone {
		t.Fatalf("expected terminal done, got %#v", last)
	}

	processResp := <-processDone
	processResp.Body.Close()
	if processResp.StatusCode != http.StatusOK {
		t.Fatalf("expected successful run, got %d", processResp.StatusCode)
	}
}

func TestWebSocketReplayForActiveRun(t *testing.T) {
	f := testsupport.StartDaemon(t, testsupport.NewConfig(t))
	f.Textgen.Started = make(chan struct{})
	f.Textgen.Release = make(chan struct{})
	image := testsupport.PNGImage(t, 12, 12, color.White)

	processDone := make(chan *http.Response, 1)
	go func() {
		processDone <- processRequest(t, f.Addr, image, "ws-replay", map[string]string{"texts": "true"})
	}()

	// A late observer attaching mid-run gets the current step statuses in
	// its replay, not just new events.
	<-f.Textgen.Started
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+f.Addr+"/api/runs/ws-replay/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var first progress.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if first.Type != progress.EventConnected {
		t.Fatalf("expected connected, got %#v", first)
	}

	var second progress.Event
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if second.Type != progress.EventStep || second.Step == "" {
		t.Fatalf("expected replayed step status, got %#v", second)
	}

	close(f.Textgen.Release)
	processResp := <-processDone
	processResp.Body.Close()
}
