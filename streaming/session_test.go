package streaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// streamerStub runs a minimal streamer endpoint that acknowledges every
// request, recording what it saw.
type streamerStub struct {
	upgrader websocket.Upgrader
	seen     chan string
	reject   bool
}

func (s *streamerStub) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.seen <- string(msg)

		ack := `{"response":[{"content":{"code":0,"msg":"success"}}]}`
		if s.reject {
			ack = `{"response":[{"content":{"code":3,"msg":"login denied"}}]}`
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ack)); err != nil {
			return
		}
	}
}

func newStreamerStub(t *testing.T, reject bool) (*httptest.Server, *streamerStub) {
	t.Helper()
	stub := &streamerStub{seen: make(chan string, 16), reject: reject}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)
	return srv, stub
}

func testInfo(wsURL string) *StreamerInfo {
	si := &StreamerInfo{
		Credentials: Credentials{
			UserID:     "acct1",
			Token:      "tok123",
			AppID:      "APP_1",
			Authorized: true,
		},
		URL: wsURL,
	}
	si.EncodeCredentials()
	return si
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSessionLoginAndSubscribe(t *testing.T) {
	srv, stub := newStreamerStub(t, false)
	sess := NewSession(testInfo(wsURL(srv)))

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	login := <-stub.seen
	req := gjson.Get(login, "requests.0")
	if req.Get("service").String() != "ADMIN" || req.Get("command").String() != "LOGIN" {
		t.Fatalf("expected ADMIN LOGIN, got %s", login)
	}
	if req.Get("parameters.credential").String() == "" {
		t.Fatalf("expected encoded credential in login: %s", login)
	}
	if req.Get("parameters.token").String() != "tok123" {
		t.Fatalf("expected token in login: %s", login)
	}
	if req.Get("account").String() != "acct1" || req.Get("source").String() != "APP_1" {
		t.Fatalf("expected account/source fields: %s", login)
	}

	if err := sess.Subscribe(ServiceQuote, []string{"SPY", "QQQ"}, []string{"0", "1", "2"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subs := <-stub.seen
	req = gjson.Get(subs, "requests.0")
	if req.Get("service").String() != "QUOTE" || req.Get("command").String() != "SUBS" {
		t.Fatalf("expected QUOTE SUBS, got %s", subs)
	}
	if req.Get("parameters.keys").String() != "SPY,QQQ" {
		t.Fatalf("expected joined keys, got %s", subs)
	}
	if req.Get("parameters.fields").String() != "0,1,2" {
		t.Fatalf("expected joined fields, got %s", subs)
	}

	if err := sess.SetQOS(2); err != nil {
		t.Fatalf("set qos: %v", err)
	}
	qos := <-stub.seen
	if gjson.Get(qos, "requests.0.parameters.qoslevel").String() != "2" {
		t.Fatalf("expected qos level 2, got %s", qos)
	}
}

func TestSessionLoginRejected(t *testing.T) {
	srv, _ := newStreamerStub(t, true)
	sess := NewSession(testInfo(wsURL(srv)))

	err := sess.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "login denied") {
		t.Fatalf("expected rejected login, got %v", err)
	}

	// A failed connect leaves the session unconnected.
	if err := sess.Subscribe(ServiceQuote, []string{"SPY"}, nil); err == nil {
		t.Fatalf("expected error subscribing on unconnected session")
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("close unconnected session: %v", err)
	}
}

func TestSessionQOSRange(t *testing.T) {
	srv, _ := newStreamerStub(t, false)
	sess := NewSession(testInfo(wsURL(srv)))
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	if err := sess.SetQOS(9); err == nil {
		t.Fatalf("expected out-of-range qos error")
	}
}
