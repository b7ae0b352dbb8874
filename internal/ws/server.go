package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chessmatchgo/internal/services/match"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be < pongWait
	maxMessageSize = 4096
	dispatchWait   = 1900 * time.Millisecond
)

// TokenVerifier is the credential collaborator consumed at handshake
// time. The websocket layer only ever sees tokens, never credentials.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	hub      *Hub
	router   *Router
	verifier TokenVerifier
	matchSvc match.IMatchService
}

func NewWsServer(h *Hub, verifier TokenVerifier, matchSvc match.IMatchService) *WsServer {
	srv := &WsServer{
		hub:      h,
		router:   NewRouter(),
		verifier: verifier,
		matchSvc: matchSvc,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

// Handle upgrades /ws?token=<jwt>. The token is checked before the
// upgrade: an unauthenticated peer never reaches the registry.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	token := ginCtx.Query("token")
	if token == "" {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": "auth token required"})
		return
	}
	username, err := s.verifier.VerifyToken(token)
	if err != nil {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": "token verification failed"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageSize)

	// ─────────────────── Client admitted ────────────────────────
	conn := &clientConn{id: uuid.NewString(), username: username, rawConn: rawConn}
	s.hub.add(conn)
	s.matchSvc.Connect(conn.id, conn.username)

	go s.reader(conn)
	go s.pinger(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, "create_room",
		func(ctx context.Context, cc *ConnContext, req JoinRoomRequest) (*JoinRoomAck, error) {
			dto, err := s.matchSvc.CreateRoom(cc.ConnID, req.RoomID, req.Password)
			if err != nil {
				return nil, err
			}
			return &JoinRoomAck{OK: true, Color: dto.Color, Fen: dto.Fen}, nil
		},
	)

	Register(s.router, "join_room",
		func(ctx context.Context, cc *ConnContext, req JoinRoomRequest) (*JoinRoomAck, error) {
			dto, err := s.matchSvc.JoinRoom(cc.ConnID, req.RoomID, req.Password)
			if err != nil {
				return nil, err
			}
			return &JoinRoomAck{OK: true, Color: dto.Color, Fen: dto.Fen}, nil
		},
	)

	Register(s.router, "random_join",
		func(ctx context.Context, cc *ConnContext, _ AckBody) (*match.RandomJoinDTO, error) {
			return s.matchSvc.RandomJoin(cc.ConnID)
		},
	)

	Register(s.router, "cancel_random",
		func(ctx context.Context, cc *ConnContext, _ AckBody) (AckBody, error) {
			s.matchSvc.CancelRandom(cc.ConnID)
			return AckBody{}, nil
		},
	)

	Register(s.router, "move",
		func(ctx context.Context, cc *ConnContext, req MoveRequest) (*MoveAck, error) {
			if err := s.matchSvc.Move(cc.ConnID, req.RoomID, req.Fen); err != nil {
				return nil, err
			}
			return &MoveAck{OK: true}, nil
		},
	)

	Register(s.router, "leave_room",
		func(ctx context.Context, cc *ConnContext, _ AckBody) (AckBody, error) {
			s.matchSvc.LeaveRoom(cc.ConnID)
			return AckBody{}, nil
		},
	)
}

func (s *WsServer) reader(conn *clientConn) {
	defer func() {
		s.matchSvc.Disconnect(conn.id)
		s.hub.remove(conn)
	}()

	cc := &ConnContext{ConnID: conn.id, Username: conn.username, Server: s}

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchWait)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Error: err.Error()},
			})
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{...}} --------
		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			conn.rawConn.Close()
			return
		}
	}
}
