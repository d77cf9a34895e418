package session

import (
	"io"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"termibbl"
	"termibbl/room"
)

type fakeHub struct {
	mu       sync.Mutex
	enqueued []termibbl.PlayerId
	left     []termibbl.PlayerId
}

func (h *fakeHub) Register(id termibbl.PlayerId, name string) termibbl.Username {
	return termibbl.Username{Name: name}
}

func (h *fakeHub) Enqueue(id termibbl.PlayerId, name termibbl.Username, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enqueued = append(h.enqueued, id)
}

func (h *fakeHub) Leave(id termibbl.PlayerId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.left = append(h.left, id)
}

func (h *fakeHub) sawEnqueue() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.enqueued) > 0
}

func (h *fakeHub) sawLeave() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.left) > 0
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHandshakeEnqueuesWithHub(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	hub := &fakeHub{}
	sess := New(server, hub, testLogger())
	go sess.Handle()

	client.Write([]byte("alice\n"))

	waitUntil(t, hub.sawEnqueue)
	assert.Equal(t, Queued, sess.state)
}

func TestHandshakeRejectsEmptyUsername(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	hub := &fakeHub{}
	sess := New(server, hub, testLogger())
	done := make(chan struct{})
	go func() { sess.Handle(); close(done) }()

	client.Write([]byte("\n"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close on invalid handshake")
	}
	assert.False(t, hub.sawEnqueue())
}

func TestLeaveReportedOnDisconnect(t *testing.T) {
	client, server := net.Pipe()

	hub := &fakeHub{}
	sess := New(server, hub, testLogger())
	go sess.Handle()

	client.Write([]byte("alice\n"))
	waitUntil(t, hub.sawEnqueue)

	client.Close()
	waitUntil(t, hub.sawLeave)
}

func TestDeliverClosesSessionWhenOutboundBufferFull(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	hub := &fakeHub{}
	sess := New(server, hub, testLogger())

	for i := 0; i < outboundBuffer; i++ {
		sess.Deliver(termibbl.PingMsg{})
	}
	sess.Deliver(termibbl.PingMsg{})

	select {
	case <-sess.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("session was not closed after its outbound buffer overflowed")
	}
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// A lone participant stays in Lobby (game start needs a second
// player), so its own chat round-trips back through the room as a
// broadcast SystemMsg rather than being interpreted as a guess.
func TestOnClientMsgForwardsToJoinedRoom(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	hub := &fakeHub{}
	sess := New(server, hub, testLogger())
	sess.name = termibbl.Username{Name: "alice"}

	r := room.New("ABCDE", termibbl.GameOpts{Words: []string{"apple"}, RoundDuration: time.Minute, Rounds: 1}, fixedClock{t: time.Unix(0, 0)}, rand.New(rand.NewSource(1)), testLogger())
	go r.Run()
	defer r.Stop()

	r.Connect(sess.ID(), sess.name, sess.Deliver)
	sess.JoinRoom(r, nil)

	sess.onClientMsg(termibbl.ChatMsg{Text: "hello there"})

	waitUntil(t, func() bool {
		for {
			select {
			case m := <-sess.outbound:
				if sys, ok := m.(termibbl.SystemMsg); ok && containsHello(sys.Text) {
					return true
				}
			default:
				return false
			}
		}
	})
}

func containsHello(s string) bool {
	for i := 0; i+len("hello there") <= len(s); i++ {
		if s[i:i+len("hello there")] == "hello there" {
			return true
		}
	}
	return false
}

func TestOnClientMsgIgnoresJoinMsgWhileInRoom(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	hub := &fakeHub{}
	sess := New(server, hub, testLogger())

	r := room.New("ABCDE", termibbl.GameOpts{Words: []string{"apple"}, RoundDuration: time.Minute, Rounds: 1}, fixedClock{t: time.Unix(0, 0)}, rand.New(rand.NewSource(1)), testLogger())
	go r.Run()
	defer r.Stop()
	r.Connect(sess.ID(), termibbl.Username{Name: "alice"}, sess.Deliver)
	sess.JoinRoom(r, nil)

	// Must not panic or forward a stray JoinMsg once already seated.
	sess.onClientMsg(termibbl.JoinMsg{Name: "alice", Room: "ZZZZZ"})
}
