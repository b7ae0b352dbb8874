package match

import "sync"

// StartFEN is the standard chess starting position. The server never
// interprets a position beyond storing and relaying it.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type seat struct {
	connID   string
	username string
	color    string
}

type room struct {
	password string
	seats    []seat // at most 2, seat 0 joined first
	fen      string
}

// roomStore owns every room plus the connection -> room reverse index.
// One store-wide mutex serializes seat assignment: a racing second join
// observes either a free seat or a full room, never a half state.
type roomStore struct {
	mu        sync.Mutex
	rooms     map[string]*room
	connRooms map[string]string // connection id -> room id
}

func newRoomStore() *roomStore {
	return &roomStore{
		rooms:     make(map[string]*room),
		connRooms: make(map[string]string),
	}
}

type joinOutcome struct {
	color    string
	fen      string
	rejoined bool
	others   []string // already-seated connections to tell about the join
}

func (s *roomStore) join(roomID, password, connID, username string, allowCreate bool) (*joinOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		if !allowCreate {
			return nil, ErrRoomNotFound
		}
		r = &room{password: password, fen: StartFEN}
		s.rooms[roomID] = r
	}

	if r.password != "" && r.password != password {
		return nil, ErrWrongPassword
	}

	// Rejoin from a second tab or a reconnect: the identity keeps its
	// seat and color, no new seat is consumed. The seat follows the
	// newest connection so relays reach the tab actually playing.
	for i := range r.seats {
		if r.seats[i].username == username {
			r.seats[i].connID = connID
			s.connRooms[connID] = roomID
			return &joinOutcome{color: r.seats[i].color, fen: r.fen, rejoined: true}, nil
		}
	}

	if len(r.seats) >= 2 {
		return nil, ErrRoomFull
	}

	color := "white"
	if len(r.seats) == 1 {
		color = "black"
	}
	others := make([]string, 0, len(r.seats))
	for _, st := range r.seats {
		others = append(others, st.connID)
	}
	r.seats = append(r.seats, seat{connID: connID, username: username, color: color})
	s.connRooms[connID] = roomID
	return &joinOutcome{color: color, fen: r.fen, others: others}, nil
}

// applyMove overwrites the stored position unconditionally and returns
// the other seated connections the new position must be relayed to.
func (s *roomStore) applyMove(roomID, connID, fen string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.fen = fen

	others := make([]string, 0, 1)
	for _, st := range r.seats {
		if st.connID != connID {
			others = append(others, st.connID)
		}
	}
	return others, nil
}

// leave drops the seat held by connID, if any, and deletes the room once
// its last seat empties. It reports the remaining seats to notify.
func (s *roomStore) leave(connID string) (removed bool, others []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.connRooms[connID]
	if !ok {
		return false, nil
	}
	delete(s.connRooms, connID)

	r, ok := s.rooms[roomID]
	if !ok {
		return false, nil
	}

	kept := r.seats[:0]
	for _, st := range r.seats {
		if st.connID == connID {
			removed = true
			continue
		}
		kept = append(kept, st)
	}
	r.seats = kept
	if !removed {
		// Stale index entry, e.g. the older tab after a rejoin moved
		// the seat to a newer connection.
		return false, nil
	}

	for _, st := range r.seats {
		others = append(others, st.connID)
	}
	if len(r.seats) == 0 {
		delete(s.rooms, roomID)
	}
	return removed, others
}

func (s *roomStore) roomOf(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.connRooms[connID]
	return roomID, ok
}

func (s *roomStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
