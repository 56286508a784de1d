package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Session drives one streamer websocket connection. Like a transport
// connection it is single-threaded: sequence all calls from one
// goroutine. Request/acknowledge exchanges are synchronous.
type Session struct {
	info   *StreamerInfo
	dialer *websocket.Dialer
	conn   *websocket.Conn
	nextID int64
}

type streamRequest struct {
	Service    string            `json:"service"`
	Command    string            `json:"command"`
	RequestID  string            `json:"requestid"`
	Account    string            `json:"account"`
	Source     string            `json:"source"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type streamEnvelope struct {
	Requests []streamRequest `json:"requests"`
}

// NewSession prepares a session for the streamer endpoint described by
// info. Nothing is dialed until Connect.
func NewSession(info *StreamerInfo) *Session {
	return &Session{
		info: info,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
			Proxy:            http.ProxyFromEnvironment,
		},
	}
}

// Connect dials the streamer endpoint and logs in with the encoded
// credentials. The session is usable once Connect returns nil.
func (s *Session) Connect(ctx context.Context) error {
	if s.conn != nil {
		return fmt.Errorf("streaming: session already connected")
	}
	conn, _, err := s.dialer.DialContext(ctx, s.info.URL, nil)
	if err != nil {
		return fmt.Errorf("streaming: dial %s: %w", s.info.URL, err)
	}
	s.conn = conn

	err = s.sendAndAck(streamRequest{
		Service: ServiceAdmin.String(),
		Command: "LOGIN",
		Parameters: map[string]string{
			"credential": s.info.EncodedCredentials,
			"token":      s.info.Credentials.Token,
			"version":    "1.0",
		},
	})
	if err != nil {
		_ = conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Subscribe issues a SUBS request for the service with the given symbol
// keys and field indices.
func (s *Session) Subscribe(svc Service, keys []string, fields []string) error {
	if s.conn == nil {
		return fmt.Errorf("streaming: session is not connected")
	}
	return s.sendAndAck(streamRequest{
		Service: svc.String(),
		Command: "SUBS",
		Parameters: map[string]string{
			"keys":   strings.Join(keys, ","),
			"fields": strings.Join(fields, ","),
		},
	})
}

// SetQOS adjusts the streamer update rate, 0 (express) through 5 (delayed).
func (s *Session) SetQOS(level int) error {
	if s.conn == nil {
		return fmt.Errorf("streaming: session is not connected")
	}
	if level < 0 || level > 5 {
		return fmt.Errorf("streaming: qos level %d out of range", level)
	}
	return s.sendAndAck(streamRequest{
		Service:    ServiceAdmin.String(),
		Command:    "QOS",
		Parameters: map[string]string{"qoslevel": strconv.Itoa(level)},
	})
}

// ReadMessage blocks for the next raw streamer message.
func (s *Session) ReadMessage() ([]byte, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("streaming: session is not connected")
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("streaming: read: %w", err)
	}
	return data, nil
}

// Logout sends an ADMIN LOGOUT and closes the connection. Closing an
// unconnected session is a no-op.
func (s *Session) Logout() error {
	if s.conn == nil {
		return nil
	}
	err := s.sendAndAck(streamRequest{
		Service: ServiceAdmin.String(),
		Command: "LOGOUT",
	})
	closeErr := s.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Close tears the socket down without a logout handshake.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) sendAndAck(req streamRequest) error {
	s.nextID++
	req.RequestID = strconv.FormatInt(s.nextID, 10)
	req.Account = s.info.Credentials.UserID
	req.Source = s.info.Credentials.AppID

	payload, err := json.Marshal(streamEnvelope{Requests: []streamRequest{req}})
	if err != nil {
		return fmt.Errorf("streaming: encode %s %s: %w", req.Service, req.Command, err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("streaming: send %s %s: %w", req.Service, req.Command, err)
	}

	_, resp, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("streaming: await %s %s ack: %w", req.Service, req.Command, err)
	}
	content := gjson.GetBytes(resp, "response.0.content")
	if code := content.Get("code"); !code.Exists() || code.Int() != 0 {
		return fmt.Errorf("streaming: %s %s rejected: code=%s msg=%s",
			req.Service, req.Command, code.Raw, content.Get("msg").String())
	}
	return nil
}
