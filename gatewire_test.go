package gatewire

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gatewire-dev/gatewire/internal/gatewaytest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitEvent(t *testing.T, ch <-chan Event, what string) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
		return Event{}
	}
}

func TestNewSessionDelivers(t *testing.T) {
	srv := gatewaytest.NewServer(gatewaytest.Options{GuildCount: 2})
	defer srv.Close()

	sess, err := New("test-token",
		WithGatewayURL(srv.URL),
		WithIntents(IntentGuilds|IntentGuildMessages),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sess.Close()

	readyCh := make(chan Event, 1)
	msgCh := make(chan Event, 4)
	sess.On(EventReady, func(e Event) { readyCh <- e })
	sess.On(EventMessageCreate, func(e Event) { msgCh <- e })

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	ready := waitEvent(t, readyCh, "READY")
	rd, ok := ready.Data.(*ReadyData)
	if !ok {
		t.Fatalf("READY data = %T, want *ReadyData", ready.Data)
	}
	if rd.SessionID == "" {
		t.Error("READY carried no session ID")
	}
	if got := sess.Cache().GuildCount(); got != 2 {
		t.Errorf("cached guilds = %d, want 2", got)
	}

	if n := srv.Dispatch(EventMessageCreate, map[string]any{
		"id":         "m1",
		"channel_id": "c1",
		"content":    "hello",
	}); n != 1 {
		t.Fatalf("Dispatch reached %d connections, want 1", n)
	}

	ev := waitEvent(t, msgCh, "MESSAGE_CREATE")
	msg, ok := ev.Data.(*Message)
	if !ok {
		t.Fatalf("event data = %T, want *Message", ev.Data)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}

	st := sess.Stats()
	if st.State != StateReady {
		t.Errorf("State = %v, want %v", st.State, StateReady)
	}
	if st.SessionID != rd.SessionID {
		t.Errorf("Stats.SessionID = %q, want %q", st.SessionID, rd.SessionID)
	}
	if st.EventsReceived < 2 {
		t.Errorf("EventsReceived = %d, want at least 2", st.EventsReceived)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := sess.State(); got != StateDisconnected {
		t.Errorf("state after Close = %v, want %v", got, StateDisconnected)
	}
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("", WithGatewayURL("wss://gateway.test"))
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("New with empty token = %v, want ErrMissingToken", err)
	}
}

func TestNewWiresRESTResolver(t *testing.T) {
	srv := gatewaytest.NewServer(gatewaytest.Options{})
	defer srv.Close()

	var hits atomic.Int64
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gateway" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"url": srv.URL})
	}))
	defer api.Close()

	sess, err := New("test-token",
		WithAPIBaseURL(api.URL),
		WithHTTPClient(api.Client()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sess.Close()

	readyCh := make(chan Event, 1)
	sess.On(EventReady, func(e Event) { readyCh <- e })

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitEvent(t, readyCh, "READY")

	if hits.Load() == 0 {
		t.Error("gateway URL was not resolved through the REST API")
	}
}

func TestNewShardManagerFanout(t *testing.T) {
	srv := gatewaytest.NewServer(gatewaytest.Options{})
	defer srv.Close()

	mgr, err := NewShardManager("test-token", 2,
		WithGatewayURL(srv.URL),
		WithIdentifyInterval(10*time.Millisecond),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("NewShardManager: %v", err)
	}
	defer mgr.Close()

	msgCh := make(chan Event, 4)
	mgr.On(EventMessageCreate, func(e Event) { msgCh <- e })

	if err := mgr.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := srv.WaitReady(2, 5*time.Second); err != nil {
		t.Fatalf("shards not ready: %v", err)
	}

	if n := srv.Dispatch(EventMessageCreate, map[string]any{
		"id":         "m1",
		"channel_id": "c1",
		"content":    "fanout",
	}); n != 2 {
		t.Fatalf("Dispatch reached %d connections, want 2", n)
	}

	shards := map[int]bool{}
	for i := 0; i < 2; i++ {
		ev := waitEvent(t, msgCh, "MESSAGE_CREATE")
		shards[ev.Shard] = true
	}
	if !shards[0] || !shards[1] {
		t.Errorf("delivery shards = %v, want both 0 and 1", shards)
	}

	if _, ok := mgr.Session(1); !ok {
		t.Error("Session(1) not found")
	}
	stats := mgr.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats len = %d, want 2", len(stats))
	}
	if stats[0].Shard != 0 || stats[1].Shard != 1 {
		t.Errorf("stats order = [%d %d], want [0 1]", stats[0].Shard, stats[1].Shard)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSessionResumesAfterServerReconnect(t *testing.T) {
	srv := gatewaytest.NewServer(gatewaytest.Options{})
	defer srv.Close()

	cfg := DefaultConfig().
		WithToken("test-token").
		WithLogger(quietLogger())
	cfg.GatewayURL = srv.URL
	cfg.RetryBaseDelay = 20 * time.Millisecond

	sess, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	readyCh := make(chan Event, 1)
	resumedCh := make(chan Event, 1)
	sess.On(EventReady, func(e Event) { readyCh <- e })
	sess.On(EventResumed, func(e Event) { resumedCh <- e })

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ready := waitEvent(t, readyCh, "READY")
	sessionID := ready.Data.(*ReadyData).SessionID

	srv.SendReconnect()

	waitEvent(t, resumedCh, "RESUMED")
	if got := srv.Resumes(); got != 1 {
		t.Errorf("Resumes = %d, want 1", got)
	}
	if got := srv.Identifies(); got != 1 {
		t.Errorf("Identifies = %d, want 1 (resume must not re-identify)", got)
	}
	if got := sess.SessionID(); got != sessionID {
		t.Errorf("SessionID after resume = %q, want %q", got, sessionID)
	}
}
