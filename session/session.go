// Package session implements the per-connection actor: a state
// machine that turns raw framed bytes into room events and vice
// versa. It is modeled on the teacher's proto/client.go, which owns
// exactly one reader goroutine and one mutex-guarded writer per
// connection and coordinates them through a single select loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"termibbl"
	"termibbl/codec"
	"termibbl/room"
)

// State is the session's coarse lifecycle stage.
type State int

const (
	Idle State = iota
	Queued
	InRoom
	Closed
)

// Hub is the subset of the game server a session needs: assigning a
// disambiguated identity, registering for matchmaking, and announcing
// its own departure. Kept as an interface so session never imports
// gameserver (gameserver imports session instead), avoiding an import
// cycle.
type Hub interface {
	Register(id termibbl.PlayerId, name string) termibbl.Username
	Enqueue(id termibbl.PlayerId, name termibbl.Username, s *Session)
	Leave(id termibbl.PlayerId)
}

// outboundBuffer bounds how many undelivered ServerMsg a session will
// hold before it is considered stalled and closed.
const outboundBuffer = 64

// Session owns one connection end-to-end: the username handshake,
// decoding inbound frames, and serializing outbound frames.
type Session struct {
	id   termibbl.PlayerId
	name termibbl.Username

	conn io.ReadWriteCloser
	fr   *codec.FrameReader
	hub  Hub
	log  *logrus.Logger

	limiter *rate.Limiter

	writeMu sync.Mutex

	state State
	room  *room.Room

	outbound chan termibbl.ServerMsg
	ctx      context.Context
	cancel   context.CancelFunc
}

// New wraps conn into a session that has not yet read its username.
func New(conn io.ReadWriteCloser, hub Hub, log *logrus.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       termibbl.NewPlayerId(),
		conn:     conn,
		fr:       codec.NewFrameReader(conn),
		hub:      hub,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(20), 5),
		outbound: make(chan termibbl.ServerMsg, outboundBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Session) String() string { return fmt.Sprintf("session %s (%q)", s.id, s.name) }

// ID returns the session's assigned player id.
func (s *Session) ID() termibbl.PlayerId { return s.id }

// Deliver enqueues a message for this session's writer. If the
// session's outbound buffer is already full, the client is considered
// stalled and the session is closed rather than let the buffer grow
// without bound.
func (s *Session) Deliver(msg termibbl.ServerMsg) {
	select {
	case s.outbound <- msg:
	default:
		s.log.Warnf("%s: outbound buffer full, closing stalled session", s)
		s.cancel()
	}
}

// JoinRoom transitions the session into InRoom and forwards the
// initial snapshot, if any, to the client.
func (s *Session) JoinRoom(r *room.Room, snapshot *termibbl.InitialStateMsg) {
	s.room = r
	s.state = InRoom
	if snapshot != nil {
		s.Deliver(*snapshot)
	}
}

// Handle runs the session to completion: the username handshake,
// then the read/write loop, until the connection closes or the
// session is cancelled.
func (s *Session) Handle() {
	defer s.conn.Close()
	defer func() {
		s.state = Closed
		if s.room != nil {
			s.room.Disconnect(s.id)
		}
		s.hub.Leave(s.id)
	}()

	name, err := s.handshake()
	if err != nil {
		s.log.Debugf("%s: handshake failed: %v", s, err)
		return
	}
	s.name = s.hub.Register(s.id, name)
	s.state = Queued
	s.hub.Enqueue(s.id, s.name, s)

	decoded := make(chan termibbl.ClientMsg)
	readErr := make(chan error, 1)
	go s.readLoop(decoded, readErr)

	writeErr := make(chan error, 1)

	for {
		select {
		case <-s.ctx.Done():
			return
		case err := <-readErr:
			if !errors.Is(err, io.EOF) {
				s.log.Debugf("%s: read error: %v", s, err)
			}
			return
		case err := <-writeErr:
			s.log.Debugf("%s: write error: %v", s, err)
			return
		case msg := <-decoded:
			s.onClientMsg(msg)
		case msg := <-s.outbound:
			if err := s.write(msg); err != nil {
				writeErr <- err
			}
		}
	}
}

// handshake reads the single LF-terminated username line that
// precedes all framed traffic, per the external-interface contract.
// It returns the raw requested display name; the hub assigns the
// disambiguated Username at registration.
func (s *Session) handshake() (string, error) {
	line, err := s.fr.ReadLine()
	if err != nil {
		return "", err
	}
	if !(termibbl.Username{Name: line}).Valid() {
		return "", errors.New("empty or invalid username")
	}
	return line, nil
}

func (s *Session) readLoop(decoded chan<- termibbl.ClientMsg, errs chan<- error) {
	for {
		if err := s.limiter.WaitN(s.ctx, 1); err != nil {
			errs <- err
			return
		}
		payload, err := s.fr.ReadFrame()
		if err != nil {
			errs <- err
			return
		}
		msg, err := codec.DecodeClient(payload)
		if err != nil {
			errs <- err
			return
		}
		select {
		case decoded <- msg:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) onClientMsg(msg termibbl.ClientMsg) {
	switch m := msg.(type) {
	case termibbl.PongMsg:
		// Keepalive acknowledged; nothing further to do.
	default:
		if s.state != InRoom || s.room == nil {
			return
		}
		if _, ok := m.(termibbl.JoinMsg); ok {
			// A JoinMsg once already in a room is a no-op: room
			// selection is the server's job, not the client's.
			return
		}
		s.room.Inbound(s.id, msg)
	}
}

func (s *Session) write(msg termibbl.ServerMsg) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return codec.WriteFrame(s.conn, codec.EncodeServer(msg))
}

// Close cancels the session's loop from outside, e.g. during a
// coordinated server shutdown.
func (s *Session) Close() { s.cancel() }

// pingInterval mirrors the teacher's keepalive cadence.
const pingInterval = 20 * time.Second

// Pinger periodically delivers a PingMsg; callers run it as its own
// goroutine and stop it by cancelling the session.
func (s *Session) Pinger() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			s.Deliver(termibbl.PingMsg{})
		}
	}
}
