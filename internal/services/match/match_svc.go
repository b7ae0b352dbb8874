package match

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JoinRoomDTO struct {
	RoomID string `json:"roomId"`
	Color  string `json:"color"`
	Fen    string `json:"fen"`
}

type RandomJoinDTO struct {
	Queued  bool   `json:"queued,omitempty"`
	Message string `json:"message,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
	Color   string `json:"color,omitempty"`
	Fen     string `json:"fen,omitempty"`
}

type StatsDTO struct {
	Connections int
	Users       int
	Rooms       int
	Waiting     int
}

var (
	ErrMissingRoomID     = errors.New("roomId is required")
	ErrRoomNotFound      = errors.New("room does not exist")
	ErrWrongPassword     = errors.New("wrong room password")
	ErrRoomFull          = errors.New("room is already full")
	ErrAlreadyInRoom     = errors.New("already in a room")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Notifier fans state changes out to connected clients. Implementations
// must not block: the coordinator calls these inline with the request
// that triggered them.
type Notifier interface {
	UserListChanged(users []string)
	OpponentJoined(connID, username string)
	OpponentLeft(connID string)
	MoveRelayed(connID, fen string)
	MatchFound(connID string, dto *RandomJoinDTO)
	MatchFailed(connID, reason string)
}

// IMatchService is the session coordinator: it validates each client
// event against the registry, room store and matchmaking queue, mutates
// exactly one of them at a time, and pushes the fallout through the
// Notifier.
type IMatchService interface {
	Connect(connID, username string)
	Disconnect(connID string)
	Presence() []string
	CreateRoom(connID, roomID, password string) (*JoinRoomDTO, error)
	JoinRoom(connID, roomID, password string) (*JoinRoomDTO, error)
	RandomJoin(connID string) (*RandomJoinDTO, error)
	CancelRandom(connID string)
	LeaveRoom(connID string)
	Move(connID, roomID, fen string) error
	Stats() StatsDTO
}

type matchService struct {
	registry *connRegistry
	rooms    *roomStore
	queue    *matchQueue
	notifier Notifier

	// overridable for tests that need a colliding id
	newRoomID func() string
}

var _ IMatchService = (*matchService)(nil)

func NewMatchService(notifier Notifier) IMatchService {
	return &matchService{
		registry:  newConnRegistry(),
		rooms:     newRoomStore(),
		queue:     newMatchQueue(),
		notifier:  notifier,
		newRoomID: newRandomRoomID,
	}
}

func (svc *matchService) Connect(connID, username string) {
	svc.registry.register(connID, username)
	svc.notifier.UserListChanged(svc.registry.presence())
}

// Disconnect is the union of cancel_random, leave_room and unregister.
func (svc *matchService) Disconnect(connID string) {
	svc.queue.remove(connID)
	if removed, others := svc.rooms.leave(connID); removed {
		for _, other := range others {
			svc.notifier.OpponentLeft(other)
		}
	}
	svc.registry.unregister(connID)
	svc.notifier.UserListChanged(svc.registry.presence())
}

func (svc *matchService) Presence() []string {
	return svc.registry.presence()
}

func (svc *matchService) CreateRoom(connID, roomID, password string) (*JoinRoomDTO, error) {
	return svc.joinRoom(connID, roomID, password, true)
}

func (svc *matchService) JoinRoom(connID, roomID, password string) (*JoinRoomDTO, error) {
	return svc.joinRoom(connID, roomID, password, false)
}

func (svc *matchService) joinRoom(connID, roomID, password string, allowCreate bool) (*JoinRoomDTO, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}
	username, ok := svc.registry.identity(connID)
	if !ok {
		return nil, ErrUnknownConnection
	}

	out, err := svc.rooms.join(roomID, password, connID, username, allowCreate)
	if err != nil {
		return nil, err
	}
	for _, other := range out.others {
		svc.notifier.OpponentJoined(other, username)
	}
	return &JoinRoomDTO{RoomID: roomID, Color: out.color, Fen: out.fen}, nil
}

// RandomJoin pairs the requester with the oldest live waiter, or parks
// the requester in the queue when nobody is waiting.
func (svc *matchService) RandomJoin(connID string) (*RandomJoinDTO, error) {
	if _, seated := svc.rooms.roomOf(connID); seated {
		return nil, ErrAlreadyInRoom
	}

	// A stale entry from an earlier seek must never pair with itself.
	svc.queue.remove(connID)

	candidate, ok := svc.queue.dequeueActive(connID, svc.registry.live)
	if !ok {
		svc.queue.enqueue(connID)
		return &RandomJoinDTO{Queued: true, Message: "Waiting for an opponent..."}, nil
	}

	// Seat order decides colors, so who joins first is a coin flip.
	roomID := svc.newRoomID()
	first, second := connID, candidate
	if coinFlip() {
		first, second = candidate, connID
	}

	firstDTO, err := svc.joinRoom(first, roomID, "", true)
	var secondDTO *JoinRoomDTO
	if err == nil {
		secondDTO, err = svc.joinRoom(second, roomID, "", false)
	}
	if err != nil {
		// Tear the half-built room down and tell both sides the same
		// story; the candidate must not dangle in silence.
		for _, id := range []string{first, second} {
			if removed, others := svc.rooms.leave(id); removed {
				for _, other := range others {
					svc.notifier.OpponentLeft(other)
				}
			}
		}
		svc.notifier.MatchFailed(candidate, err.Error())
		zap.L().Warn("match.pairing_failed",
			zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	// Either side may have re-enqueued itself between the dequeue and
	// its seat landing; pairing ends queue membership for both. Any
	// seek from here on is rejected as already-in-room.
	svc.queue.remove(first)
	svc.queue.remove(second)

	own, theirs := firstDTO, secondDTO
	if connID != first {
		own, theirs = secondDTO, firstDTO
	}
	svc.notifier.MatchFound(candidate, &RandomJoinDTO{
		RoomID: roomID, Color: theirs.Color, Fen: theirs.Fen,
	})
	zap.L().Debug("match.paired", zap.String("room_id", roomID))
	return &RandomJoinDTO{RoomID: roomID, Color: own.Color, Fen: own.Fen}, nil
}

// CancelRandom is safe to call regardless of queue membership.
func (svc *matchService) CancelRandom(connID string) {
	svc.queue.remove(connID)
}

func (svc *matchService) LeaveRoom(connID string) {
	svc.queue.remove(connID)
	if removed, others := svc.rooms.leave(connID); removed {
		for _, other := range others {
			svc.notifier.OpponentLeft(other)
		}
	}
}

func (svc *matchService) Move(connID, roomID, fen string) error {
	if roomID == "" {
		return ErrMissingRoomID
	}
	others, err := svc.rooms.applyMove(roomID, connID, fen)
	if err != nil {
		return err
	}
	for _, other := range others {
		svc.notifier.MoveRelayed(other, fen)
	}
	return nil
}

func (svc *matchService) Stats() StatsDTO {
	return StatsDTO{
		Connections: svc.registry.count(),
		Users:       len(svc.registry.presence()),
		Rooms:       svc.rooms.count(),
		Waiting:     svc.queue.len(),
	}
}

// newRandomRoomID combines a millisecond timestamp with a uuid so a
// pairing can never land on a pre-existing room by collision.
func newRandomRoomID() string {
	return fmt.Sprintf("random-%d-%s", time.Now().UnixMilli(), uuid.NewString())
}

func coinFlip() bool {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()&1 == 0
	}
	return b[0]&1 == 0
}
