package gameserver

import (
	"fmt"
	"net"

	"termibbl/session"
)

// acceptTCP runs the raw-TCP listener for the lifetime of the server,
// modeled on the teacher's proto.Listener: bind once, then hand every
// accepted connection to its own session goroutine and keep looping.
func (s *Server) acceptTCP() {
	addr := fmt.Sprintf(":%d", s.conf.TCPPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Fatalf("%s: failed to listen on %s: %v", s, addr, err)
	}
	defer ln.Close()

	go func() {
		<-s.done
		ln.Close()
	}()

	s.log.Debugf("%s: accepting TCP connections on %s", s, addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.Debugf("%s: accept error: %v", s, err)
				continue
			}
		}

		sess := session.New(conn, s, s.log)
		go sess.Handle()
		if s.conf.Ping {
			go sess.Pinger()
		}
	}
}
