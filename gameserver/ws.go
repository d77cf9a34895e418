package gameserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"termibbl/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// acceptWS serves the WebSocket upgrade endpoint alongside the raw
// TCP listener, giving browser clients the same framed protocol over
// a second transport. Grounded in the teacher's ws.go, which upgrades
// then hands the connection to the same Client.Handle used by TCP;
// here that role is played by session.Handle.
func (s *Server) acceptWS() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.upgrade)

	addr := fmt.Sprintf(":%d", s.conf.WSPort)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-s.done
		srv.Close()
	}()

	s.log.Debugf("%s: accepting WebSocket connections on %s", s, addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Fatalf("%s: websocket listener failed: %v", s, err)
	}
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("%s: websocket upgrade failed: %v", s, err)
		return
	}

	sess := session.New(&wsConn{conn: conn}, s, s.log)
	go sess.Handle()
	if s.conf.Ping {
		go sess.Pinger()
	}
}

// wsConn adapts a message-oriented *websocket.Conn into the
// io.ReadWriteCloser byte stream the frame codec expects. Each Write
// becomes its own binary message; Read reassembles a continuous byte
// stream across message boundaries, since the codec's frame and line
// reads do not otherwise care where one message ended and the next
// began.
type wsConn struct {
	conn *websocket.Conn
	buf  []byte
}

func (w *wsConn) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.buf = data
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error { return w.conn.Close() }
