package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessmatchgo/internal/services/match"
)

// stubVerifier accepts tokens of the form "user:<name>".
type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (string, error) {
	if name, ok := strings.CutPrefix(token, "user:"); ok {
		return name, nil
	}
	return "", errors.New("invalid token")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	svc := match.NewMatchService(hub)
	wsSrv := NewWsServer(hub, stubVerifier{}, svc)

	engine := gin.New()
	engine.GET("/ws", wsSrv.Handle)

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, username string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=user:" + username
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, body any) {
	t.Helper()
	var raw json.RawMessage
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		raw = b
	}
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Body: raw}))
}

// readEvent reads frames until one carries the wanted event, skipping
// interleaved broadcasts and acks.
func readEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for i := 0; i < 32; i++ {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %q", event)
		if env.Event == event {
			return env.Body
		}
	}
	t.Fatalf("did not receive %q", event)
	return nil
}

func TestHandshakeFailsClosed(t *testing.T) {
	ts := newTestServer(t)
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	for _, u := range []string{base, base + "?token=garbage"} {
		conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Nil(t, conn)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestPresenceBroadcast(t *testing.T) {
	ts := newTestServer(t)

	alice := dial(t, ts, "alice")
	var users []string
	require.NoError(t, json.Unmarshal(readEvent(t, alice, evtUserList), &users))
	assert.Equal(t, []string{"alice"}, users)

	dial(t, ts, "bob")
	require.NoError(t, json.Unmarshal(readEvent(t, alice, evtUserList), &users))
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestRoomFlowOverWire(t *testing.T) {
	ts := newTestServer(t)
	alice := dial(t, ts, "alice")
	bob := dial(t, ts, "bob")

	sendEvent(t, alice, "create_room", JoinRoomRequest{RoomID: "r1", Password: "x"})
	var created JoinRoomAck
	require.NoError(t, json.Unmarshal(readEvent(t, alice, "create_room-ack"), &created))
	assert.True(t, created.OK)
	assert.Equal(t, "white", created.Color)
	assert.Equal(t, match.StartFEN, created.Fen)

	sendEvent(t, bob, "join_room", JoinRoomRequest{RoomID: "r1", Password: "y"})
	var wsErr ErrorBody
	require.NoError(t, json.Unmarshal(readEvent(t, bob, "error"), &wsErr))
	assert.Equal(t, "wrong room password", wsErr.Error)

	sendEvent(t, bob, "join_room", JoinRoomRequest{RoomID: "r1", Password: "x"})
	var joined JoinRoomAck
	require.NoError(t, json.Unmarshal(readEvent(t, bob, "join_room-ack"), &joined))
	assert.Equal(t, "black", joined.Color)
	assert.Equal(t, match.StartFEN, joined.Fen)

	var opp OpponentJoinedBody
	require.NoError(t, json.Unmarshal(readEvent(t, alice, evtOpponentJoined), &opp))
	assert.Equal(t, "bob", opp.Username)

	sendEvent(t, alice, "move", MoveRequest{RoomID: "r1", Fen: "F1"})
	var ack MoveAck
	require.NoError(t, json.Unmarshal(readEvent(t, alice, "move-ack"), &ack))
	assert.True(t, ack.OK)

	var mv MoveBody
	require.NoError(t, json.Unmarshal(readEvent(t, bob, evtMove), &mv))
	assert.Equal(t, "F1", mv.Fen)
}

func TestRandomMatchOverWire(t *testing.T) {
	ts := newTestServer(t)
	alice := dial(t, ts, "alice")
	bob := dial(t, ts, "bob")

	sendEvent(t, alice, "random_join", nil)
	var queued match.RandomJoinDTO
	require.NoError(t, json.Unmarshal(readEvent(t, alice, "random_join-ack"), &queued))
	assert.True(t, queued.Queued)

	sendEvent(t, bob, "random_join", nil)
	var paired match.RandomJoinDTO
	require.NoError(t, json.Unmarshal(readEvent(t, bob, "random_join-ack"), &paired))
	require.NotEmpty(t, paired.RoomID)

	var found MatchFoundBody
	require.NoError(t, json.Unmarshal(readEvent(t, alice, evtMatchFound), &found))
	assert.Equal(t, paired.RoomID, found.RoomID)
	assert.ElementsMatch(t, []string{"white", "black"}, []string{paired.Color, found.Color})
}

func TestCancelRandomOverWire(t *testing.T) {
	ts := newTestServer(t)
	alice := dial(t, ts, "alice")

	// redundant cancels are fine, queued or not
	sendEvent(t, alice, "cancel_random", nil)
	readEvent(t, alice, "cancel_random-ack")

	sendEvent(t, alice, "random_join", nil)
	readEvent(t, alice, "random_join-ack")

	sendEvent(t, alice, "cancel_random", nil)
	readEvent(t, alice, "cancel_random-ack")
	sendEvent(t, alice, "cancel_random", nil)
	readEvent(t, alice, "cancel_random-ack")
}

func TestDisconnectNotifiesOpponentAndFreesRoom(t *testing.T) {
	ts := newTestServer(t)
	alice := dial(t, ts, "alice")
	bob := dial(t, ts, "bob")

	sendEvent(t, alice, "create_room", JoinRoomRequest{RoomID: "r2"})
	readEvent(t, alice, "create_room-ack")
	sendEvent(t, bob, "join_room", JoinRoomRequest{RoomID: "r2"})
	readEvent(t, bob, "join_room-ack")

	bob.Close()

	readEvent(t, alice, evtOpponentLeft)

	sendEvent(t, alice, "leave_room", nil)
	readEvent(t, alice, "leave_room-ack")

	// the room died with its last seat
	carol := dial(t, ts, "carol")
	sendEvent(t, carol, "join_room", JoinRoomRequest{RoomID: "r2"})
	var wsErr ErrorBody
	require.NoError(t, json.Unmarshal(readEvent(t, carol, "error"), &wsErr))
	assert.Equal(t, "room does not exist", wsErr.Error)
}

func TestUnknownEvent(t *testing.T) {
	ts := newTestServer(t)
	alice := dial(t, ts, "alice")

	sendEvent(t, alice, "bogus", nil)
	var wsErr ErrorBody
	require.NoError(t, json.Unmarshal(readEvent(t, alice, "error"), &wsErr))
	assert.Equal(t, "unknown_event", wsErr.Error)
}
