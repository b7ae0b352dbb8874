package ws

import (
	"sync"

	"go.uber.org/zap"

	"chessmatchgo/internal/services/match"
)

// Hub tracks every admitted connection by connection id and implements
// match.Notifier on top of that set.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
}

var _ match.Notifier = (*Hub)(nil)

func NewHub() *Hub { return &Hub{conns: make(map[string]*clientConn)} }

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(c *clientConn) {
	h.mu.Lock()
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
	c.rawConn.Close()
}

// push delivers one envelope to one connection. The write runs on its
// own goroutine behind the per-conn write mutex, so a slow peer never
// stalls the request that triggered the push.
func (h *Hub) push(connID, event string, body any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	go func() {
		if err := c.writeJSON(envelope(event, body)); err != nil {
			zap.L().Debug("ws.push", zap.String("event", event), zap.Error(err))
		}
	}()
}

// broadcast sends one envelope to every connection. I/O happens outside
// the lock on a snapshot of the current set.
func (h *Hub) broadcast(event string, body any) {
	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	go func() {
		for _, c := range conns {
			if err := c.writeJSON(envelope(event, body)); err != nil {
				zap.L().Debug("ws.broadcast", zap.String("event", event), zap.Error(err))
			}
		}
	}()
}

func envelope(event string, body any) map[string]any {
	env := map[string]any{"event": event}
	if body != nil {
		env["body"] = body
	}
	return env
}

// ──────────────────────────── match.Notifier ──────────────────────────────────

func (h *Hub) UserListChanged(users []string) {
	h.broadcast(evtUserList, users)
}

func (h *Hub) OpponentJoined(connID, username string) {
	h.push(connID, evtOpponentJoined, OpponentJoinedBody{Username: username})
}

func (h *Hub) OpponentLeft(connID string) {
	h.push(connID, evtOpponentLeft, nil)
}

func (h *Hub) MoveRelayed(connID, fen string) {
	h.push(connID, evtMove, MoveBody{Fen: fen})
}

func (h *Hub) MatchFound(connID string, dto *match.RandomJoinDTO) {
	h.push(connID, evtMatchFound, MatchFoundBody{RoomID: dto.RoomID, Color: dto.Color, Fen: dto.Fen})
}

func (h *Hub) MatchFailed(connID, reason string) {
	h.push(connID, evtMatchFailed, ErrorBody{Error: reason})
}
