// Package gameserver owns matchmaking and the room registry: it is
// the one actor that decides which room a freshly-queued session ends
// up in. Modeled on the teacher's sched package (an add/rem channel
// pair drained by a single scheduling loop) generalized from pairing
// two game agents to spreading queued players across rooms, least
// populated first.
package gameserver

import (
	"container/heap"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"termibbl"
	"termibbl/conf"
	"termibbl/room"
	"termibbl/session"
)

type queued struct {
	id   termibbl.PlayerId
	name termibbl.Username
	sess *session.Session
}

// Server is the game server: the matchmaking queue and the set of
// live rooms. It implements session.Hub.
type Server struct {
	conf *conf.Conf
	log  *logrus.Logger

	events chan any
	done   chan struct{}

	queue []queued
	rooms map[termibbl.RoomKey]*room.Room

	// holders tracks, per display name, which player ids currently hold
	// it and the identifier each was assigned; playerName is the
	// reverse lookup used to clean up on Leave.
	holders    map[string]map[termibbl.PlayerId]string
	playerName map[termibbl.PlayerId]string
}

type evEnqueue struct {
	id   termibbl.PlayerId
	name termibbl.Username
	sess *session.Session
}
type evLeave struct{ id termibbl.PlayerId }

type evRegister struct {
	id    termibbl.PlayerId
	name  string
	reply chan termibbl.Username
}

// New builds a game server bound to c. It does not start running
// until Start is called, so it can be registered with conf before
// anything else touches it.
func New(c *conf.Conf) *Server {
	return &Server{
		conf:   c,
		log:    c.Log,
		events:     make(chan any, 64),
		done:       make(chan struct{}),
		rooms:      make(map[termibbl.RoomKey]*room.Room),
		holders:    make(map[string]map[termibbl.PlayerId]string),
		playerName: make(map[termibbl.PlayerId]string),
	}
}

func (s *Server) String() string { return "game server" }

// Register implements session.Hub: it assigns a Username for the
// requested display name, appending a server-issued identifier if
// another player is already holding that name.
func (s *Server) Register(id termibbl.PlayerId, name string) termibbl.Username {
	reply := make(chan termibbl.Username, 1)
	s.events <- evRegister{id: id, name: name, reply: reply}
	return <-reply
}

// Enqueue implements session.Hub: a session that finished its
// handshake registers itself for matchmaking.
func (s *Server) Enqueue(id termibbl.PlayerId, name termibbl.Username, sess *session.Session) {
	s.events <- evEnqueue{id: id, name: name, sess: sess}
}

// Leave implements session.Hub: a session announces its own
// departure, whether it was still queued or already seated in a room.
func (s *Server) Leave(id termibbl.PlayerId) {
	s.events <- evLeave{id: id}
}

// Start runs the matchmaking loop and the TCP/WebSocket acceptors.
// It returns once Shutdown is called.
func (s *Server) Start() {
	go s.acceptTCP()
	go s.acceptWS()
	s.RunLoop()
}

// RunLoop drives the matchmaking event loop on its own, without
// starting either network acceptor. It is split out from Start so
// tests (and the status dashboard's Describe) can exercise queueing
// and room assignment without binding any sockets.
func (s *Server) RunLoop() {
	tick := time.NewTicker(s.conf.MatchmakingTick)
	defer tick.Stop()

	s.log.Debugf("%s: starting", s)
	for {
		select {
		case <-s.done:
			s.log.Debugf("%s: stopped", s)
			return
		case ev := <-s.events:
			s.handle(ev)
		case <-tick.C:
			s.matchmake()
		}
	}
}

// Shutdown stops the matchmaking loop and every room it owns.
func (s *Server) Shutdown() {
	close(s.done)
	for _, r := range s.rooms {
		r.Stop()
	}
}

func (s *Server) handle(ev any) {
	switch e := ev.(type) {
	case evRegister:
		e.reply <- s.register(e.id, e.name)
	case evEnqueue:
		s.queue = append(s.queue, queued{id: e.id, name: e.name, sess: e.sess})
	case evLeave:
		s.removeFromQueue(e.id)
		s.unregister(e.id)
		// A session already seated in a room tells that room itself
		// (Room.Disconnect, from Session.Handle's deferred cleanup)
		// before calling hub.Leave, so there is nothing further to do
		// here.
	case snapshotReq:
		e.reply <- s.describe()
	default:
		s.log.Warnf("%s: unknown event %T", s, ev)
	}
}

// register assigns id a Username for name: the first holder of a
// display name gets no identifier, any later holder gets one
// server-issued at random so broadcasts and scoreboards can tell them
// apart.
func (s *Server) register(id termibbl.PlayerId, name string) termibbl.Username {
	holders := s.holders[name]
	if holders == nil {
		holders = make(map[termibbl.PlayerId]string)
		s.holders[name] = holders
	}

	identifier := ""
	if len(holders) > 0 {
		identifier = termibbl.NewID(4)
	}
	holders[id] = identifier
	s.playerName[id] = name
	return termibbl.Username{Name: name, Identifier: identifier}
}

// unregister releases id's claim on whatever display name it
// registered, so the name is free to be handed out without an
// identifier again once nobody else holds it.
func (s *Server) unregister(id termibbl.PlayerId) {
	name, ok := s.playerName[id]
	if !ok {
		return
	}
	delete(s.playerName, id)
	delete(s.holders[name], id)
	if len(s.holders[name]) == 0 {
		delete(s.holders, name)
	}
}

func (s *Server) removeFromQueue(id termibbl.PlayerId) {
	out := s.queue[:0]
	for _, q := range s.queue {
		if q.id != id {
			out = append(out, q)
		}
	}
	s.queue = out
}

// matchmake prunes empty rooms, grows the registry if the queue is
// backed up, and assigns every queued session to the least populated
// room, per the matchmaking policy.
func (s *Server) matchmake() {
	s.pruneEmptyRooms()

	if len(s.queue) == 0 {
		return
	}

	if len(s.rooms) == 0 || len(s.queue) > s.conf.NewRoomThreshold {
		s.openRoom()
	}

	h := s.populationHeap()
	heap.Init(h)

	for _, q := range s.queue {
		target := (*h)[0]
		target.room.Connect(q.id, q.name, q.sess.Deliver)
		q.sess.JoinRoom(target.room, nil)
		target.pop++
		heap.Fix(h, 0)
	}
	s.queue = nil
}

func (s *Server) pruneEmptyRooms() {
	for key, r := range s.rooms {
		if r.Population() == 0 {
			r.Stop()
			delete(s.rooms, key)
		}
	}
}

func (s *Server) openRoom() *room.Room {
	key := termibbl.NewRoomKey()
	for s.rooms[key] != nil {
		key = termibbl.NewRoomKey()
	}
	r := room.New(key, s.conf.DefaultOpts, termibbl.RealClock{}, rand.New(rand.NewSource(time.Now().UnixNano())), s.log)
	s.rooms[key] = r
	go r.Run()
	s.log.Debugf("%s: opened room %s", s, key)
	return r
}

// roomHeap is a min-heap over a room's estimated population, updated
// locally as matchmake assigns players within a single tick (a room's
// real Population() only updates once its own loop processes Connect,
// one tick later, so re-reading it mid-assignment would be stale).
type roomHeap []*roomEntry

type roomEntry struct {
	room *room.Room
	pop  int
}

func (h roomHeap) Len() int            { return len(h) }
func (h roomHeap) Less(i, j int) bool  { return h[i].pop < h[j].pop }
func (h roomHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *roomHeap) Push(x any)         { *h = append(*h, x.(*roomEntry)) }
func (h *roomHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (s *Server) populationHeap() *roomHeap {
	h := make(roomHeap, 0, len(s.rooms))
	for _, r := range s.rooms {
		h = append(h, &roomEntry{room: r, pop: r.Population()})
	}
	return &h
}

// Snapshot is a read-only view for the status dashboard.
type Snapshot struct {
	Rooms      int
	QueueLen   int
	Population map[termibbl.RoomKey]int
}

type snapshotReq struct{ reply chan Snapshot }

func (s *Server) describe() Snapshot {
	pop := make(map[termibbl.RoomKey]int, len(s.rooms))
	for key, r := range s.rooms {
		pop[key] = r.Population()
	}
	return Snapshot{Rooms: len(s.rooms), QueueLen: len(s.queue), Population: pop}
}

// Describe returns a point-in-time snapshot of the server's rooms and
// queue, computed on the matchmaking goroutine so the web dashboard
// never reaches into Server's state directly.
func (s *Server) Describe() Snapshot {
	reply := make(chan Snapshot, 1)
	s.events <- snapshotReq{reply: reply}
	return <-reply
}
