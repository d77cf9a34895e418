package room

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termibbl"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

type inbox struct {
	mu  sync.Mutex
	msg []termibbl.ServerMsg
}

func (b *inbox) recv(m termibbl.ServerMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg = append(b.msg, m)
}

func (b *inbox) snapshot() []termibbl.ServerMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]termibbl.ServerMsg, len(b.msg))
	copy(out, b.msg)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
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

func newTestRoom(opts termibbl.GameOpts) *Room {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	log := testLogger()
	return New("ABCDE", opts, clock, rand.New(rand.NewSource(7)), log)
}

func TestSoloQueueWaitsForMorePlayers(t *testing.T) {
	r := newTestRoom(termibbl.GameOpts{Words: []string{"apple"}, RoundDuration: time.Minute, Rounds: 1})
	go r.Run()
	defer r.Stop()

	alice := &inbox{}
	r.Connect("p1", termibbl.Username{Name: "alice"}, alice.recv)

	waitFor(t, func() bool { return len(alice.snapshot()) > 0 })
	msgs := alice.snapshot()
	sys, ok := msgs[len(msgs)-1].(termibbl.SystemMsg)
	require.True(t, ok)
	assert.Contains(t, sys.Text, "waiting for more users")
	assert.Equal(t, Lobby, r.phase)
}

func TestTwoPlayersStartGame(t *testing.T) {
	r := newTestRoom(termibbl.GameOpts{Words: []string{"apple"}, RoundDuration: time.Minute, Rounds: 1})
	go r.Run()
	defer r.Stop()

	alice, bob := &inbox{}, &inbox{}
	r.Connect("p1", termibbl.Username{Name: "alice"}, alice.recv)
	r.Connect("p2", termibbl.Username{Name: "bob"}, bob.recv)

	waitFor(t, func() bool {
		return hasType[termibbl.TurnStartedMsg](alice.snapshot()) && hasType[termibbl.TurnStartedMsg](bob.snapshot())
	})

	aliceTurn := findType[termibbl.TurnStartedMsg](alice.snapshot())
	bobTurn := findType[termibbl.TurnStartedMsg](bob.snapshot())

	// Exactly one of them is the drawer and sees the word.
	sawWord := aliceTurn.Word != "" || bobTurn.Word != ""
	bothSawWord := aliceTurn.Word != "" && bobTurn.Word != ""
	assert.True(t, sawWord)
	assert.False(t, bothSawWord)
	assert.Equal(t, 5, aliceTurn.WordLength)
}

func TestDisconnectOfDrawerStartsNewTurn(t *testing.T) {
	r := newTestRoom(termibbl.GameOpts{Words: []string{"apple", "banana"}, RoundDuration: time.Minute, Rounds: 2})
	go r.Run()
	defer r.Stop()

	alice, bob := &inbox{}, &inbox{}
	r.Connect("p1", termibbl.Username{Name: "alice"}, alice.recv)
	r.Connect("p2", termibbl.Username{Name: "bob"}, bob.recv)

	waitFor(t, func() bool { return r.game != nil })
	waitFor(t, func() bool { return hasType[termibbl.TurnStartedMsg](alice.snapshot()) })

	var drawerID termibbl.PlayerId
	var survivor *inbox
	if findType[termibbl.TurnStartedMsg](alice.snapshot()).Word != "" {
		drawerID, survivor = "p1", bob
	} else {
		drawerID, survivor = "p2", alice
	}

	r.Disconnect(drawerID)

	waitFor(t, func() bool {
		turns := findAllType[termibbl.TurnStartedMsg](survivor.snapshot())
		return len(turns) >= 2
	})
}

func hasType[T any](msgs []termibbl.ServerMsg) bool {
	for _, m := range msgs {
		if _, ok := m.(T); ok {
			return true
		}
	}
	return false
}

func findType[T any](msgs []termibbl.ServerMsg) T {
	var zero T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	return zero
}

func findAllType[T any](msgs []termibbl.ServerMsg) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
