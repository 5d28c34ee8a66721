// Package transport adapts the dispatcher onto gorilla/websocket
// connections, grounded on lox-pokerforbots's internal/server/server.go
// (Upgrader config, ensureRoutes/http.ServeMux, Start/Serve/Shutdown shape)
// but replacing its length-prefixed binary protocol with the dispatcher's
// plain JSON envelope/ack.
package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/vctt94/cardroom/internal/dispatch"
	"github.com/vctt94/cardroom/internal/lobby"
	"github.com/vctt94/cardroom/internal/session"
)

// connViewer adapts one websocket connection to broadcast.Viewer, guarding
// writes with a mutex since the hub fans state/events out from whichever
// goroutine handled the triggering command, concurrently with this
// connection's own read-loop acks.
type connViewer struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	playerID string
}

func (v *connViewer) PlayerID() string { return v.playerID }

func (v *connViewer) Send(message []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return v.conn.WriteMessage(websocket.TextMessage, message)
}

// writeWait bounds how long a single outbound frame may take.
const writeWait = 10 * time.Second

// Server upgrades HTTP connections to websockets and feeds inbound
// envelopes to a Dispatcher, one connection per goroutine.
type Server struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
	log        slog.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	routesOnce sync.Once
}

// NewServer creates a websocket-fronted server over dispatcher and sessions.
func NewServer(dispatcher *dispatch.Dispatcher, sessions *session.Manager, log slog.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		sessions:   sessions,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
}

func (s *Server) ensureRoutes() {
	s.routesOnce.Do(func() {
		s.mux.HandleFunc("/ws", s.handleWebSocket)
		s.mux.HandleFunc("/health", s.handleHealth)
	})
}

// Start listens on addr and serves until the process is shut down.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve serves over an already-bound listener.
func (s *Server) Serve(listener net.Listener) error {
	s.ensureRoutes()
	s.httpServer = &http.Server{Handler: s.mux}
	s.log.Infof("cardroom server starting on %s", listener.Addr())
	return s.httpServer.Serve(listener)
}

// Shutdown gracefully stops accepting new connections and drains existing ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("shutting down cardroom server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// connectMessage is the first frame a client must send after upgrading,
// identifying who they are and which game/lobby they're joining.
type connectMessage struct {
	UserID    string          `json:"userId"`
	GameType  string          `json:"gameType"`
	LobbyCode string          `json:"lobbyCode"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	connectionID := r.RemoteAddr + "-" + time.Now().Format("150405.000000000")
	viewer := &connViewer{conn: conn}

	var connected bool
	var gameType lobby.GameType
	var lobbyCode string

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg connectMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.writeAck(viewer, dispatch.Ack{Success: false, Error: "invalid_input", Reason: "malformed envelope"})
			continue
		}

		// createLobby/listPublicRooms precede knowing a lobby code, so they
		// skip the session/subscribe gate; the client follows up with a
		// "join" envelope carrying the real code once it has one.
		preConnectAction := msg.Action == "createLobby" || msg.Action == "listPublicRooms"

		if !connected && !preConnectAction {
			gameType = lobby.GameType(msg.GameType)
			lobbyCode = msg.LobbyCode
			if err := s.sessions.Connect(connectionID, msg.UserID, gameType, lobbyCode); err != nil {
				s.writeAck(viewer, dispatch.Ack{Success: false, Error: "illegal_action", Reason: err.Error()})
				continue
			}
			connected = true
			viewer.playerID = msg.UserID
			s.dispatcher.Subscribe(gameType, lobbyCode, connectionID, viewer)
		}

		ack := s.dispatcher.Handle(dispatch.Envelope{
			GameType:  msg.GameType,
			LobbyCode: msg.LobbyCode,
			PlayerID:  msg.UserID,
			Action:    msg.Action,
			Payload:   msg.Payload,
		})
		s.writeAck(viewer, ack)
	}

	if connected {
		s.dispatcher.Unsubscribe(gameType, lobbyCode, connectionID)
		s.sessions.Disconnect(connectionID)
	}
}

func (s *Server) writeAck(v *connViewer, ack dispatch.Ack) {
	data, err := json.Marshal(ack)
	if err != nil {
		s.log.Errorf("marshaling ack: %v", err)
		return
	}
	if err := v.Send(data); err != nil {
		s.log.Debugf("websocket write error: %v", err)
	}
}
