package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"agentworld/internal/app/deploy"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
)

type Deployer interface {
	Deploy(ctx context.Context, req deploy.Request) <-chan deploy.Event
}

// Server runs one deployment per connection. The first text frame is the
// deploy request; every event after it is written as its own frame and the
// connection is closed normally after the complete event.
type Server struct {
	deployer Deployer
	log      *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer accepts upgrades from the allowed origins, the same list the HTTP
// CORS layer uses. An empty list or "*" allows every origin.
func NewServer(d Deployer, allowedOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		deployer: d,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker lets through requests without an Origin header; those come
// from non-browser clients.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			o = strings.TrimSpace(o)
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

type handshakeMsg struct {
	AgentID string `json:"agent_id"`
	WorldID string `json:"world_id"`
	Goal    string `json:"goal"`
}

type errorMsg struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		req, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Reader: the client sends nothing after the handshake, so any read
		// error means it went away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		events := s.deployer.Deploy(ctx, req)
		for e := range events {
			if err := writeJSON(conn, e); err != nil {
				s.log.Info("deployment socket closed", "agent_id", req.AgentID, "world_id", req.WorldID, "err", err)
				cancel()
				for range events {
				}
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "deployment complete"),
			time.Now().Add(time.Second))
	}
}

func (s *Server) handshake(conn *websocket.Conn) (deploy.Request, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return deploy.Request{}, false
	}
	_ = conn.SetReadDeadline(time.Time{})

	var hello handshakeMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		reject(conn, "invalid_json", "first frame must be a deploy request")
		return deploy.Request{}, false
	}
	if strings.TrimSpace(hello.AgentID) == "" || strings.TrimSpace(hello.WorldID) == "" {
		reject(conn, "bad_request", "agent_id and world_id are required")
		return deploy.Request{}, false
	}
	return deploy.Request{AgentID: hello.AgentID, WorldID: hello.WorldID, Goal: hello.Goal}, true
}

func reject(conn *websocket.Conn, code, message string) {
	var m errorMsg
	m.Error.Code = code
	m.Error.Message = message
	_ = writeJSON(conn, m)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
