package skribbl

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termibbl"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestSkribbl(t *testing.T, words []string, round time.Duration) (*Skribbl, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	opts := termibbl.GameOpts{
		Words:         words,
		RoundDuration: round,
		Rounds:        1,
	}
	order := []termibbl.PlayerId{"alice", "bob"}
	names := map[termibbl.PlayerId]termibbl.Username{
		"alice": {Name: "alice"},
		"bob":   {Name: "bob"},
	}
	s := New(order, names, opts, clock, rand.New(rand.NewSource(42)))
	s.LastRound = opts.Rounds
	return s, clock
}

func TestNextTurnResetsPerTurnState(t *testing.T) {
	s, _ := newTestSkribbl(t, []string{"apple"}, 120*time.Second)
	s.NextTurn()

	assert.Equal(t, 1, s.CurrentRound)
	assert.Equal(t, 5, s.WordLength)
	assert.Empty(t, s.Canvas)
	for _, p := range s.Players {
		assert.False(t, p.HasSolved)
	}
	assert.LessOrEqual(t, len(s.RevealedCharacters), s.WordLength/2)
}

func TestExactGuessScoring(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple"}, 120*time.Second)
	s.NextTurn()

	guesser := s.RemainingPlayers[0]
	clock.advance(60 * time.Second)

	dist, ok := s.DoGuess(guesser, "apple")
	require.True(t, ok)
	assert.Equal(t, 0, dist)
	assert.Equal(t, uint32(75), s.Players[guesser].Score)
	assert.True(t, s.Players[guesser].HasSolved)
}

func TestNearMissDoesNotScore(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple"}, 120*time.Second)
	s.NextTurn()
	guesser := s.RemainingPlayers[0]
	clock.advance(10 * time.Second)

	dist, ok := s.DoGuess(guesser, "aple")
	require.True(t, ok)
	assert.Equal(t, 1, dist)
	assert.Equal(t, uint32(0), s.Players[guesser].Score)
	assert.False(t, s.Players[guesser].HasSolved)
}

func TestDrawerCannotGuess(t *testing.T) {
	s, _ := newTestSkribbl(t, []string{"apple"}, 120*time.Second)
	s.NextTurn()
	assert.False(t, s.CanGuess(s.DrawingUser))
	_, ok := s.DoGuess(s.DrawingUser, "apple")
	assert.False(t, ok)
}

func TestSecondSolveCompressesRemainingTime(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple"}, 100*time.Second)
	s.NextTurn()

	players := s.RemainingPlayers
	s.AddPlayer("carl", termibbl.Username{Name: "carl"})
	_ = players

	s.DoGuess("bob", "apple")
	beforeSecond := s.TurnEndTime
	s.DoGuess("carl", "apple")
	assert.True(t, s.TurnEndTime.Before(beforeSecond) || s.TurnEndTime.Equal(beforeSecond))
	_ = clock
}

// A later solver's bonus is computed from the remaining time as it
// stood before that solve compressed it for everyone else, not from
// the post-compression value.
func TestSecondSolveScoresOffPreCompressionRemaining(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple"}, 120*time.Second)
	s.NextTurn()

	drawer := s.DrawingUser
	var first, second termibbl.PlayerId
	for id := range s.Players {
		if id == drawer {
			continue
		}
		if first == "" {
			first = id
		} else {
			second = id
		}
	}
	s.AddPlayer("dave", termibbl.Username{Name: "dave"})
	if second == "" {
		second = "dave"
	}

	clock.advance(60 * time.Second) // 60s remaining of 120s
	_, ok := s.DoGuess(first, "apple")
	require.True(t, ok)

	_, ok = s.DoGuess(second, "apple")
	require.True(t, ok)
	assert.Equal(t, uint32(75), s.Players[second].Score)
}

func TestHintRevealRespectsBudget(t *testing.T) {
	s, _ := newTestSkribbl(t, []string{"banana"}, 120*time.Second)
	s.NextTurn()

	s.RevealRandomChar()
	assert.Len(t, s.RevealedCharacters, 1)
	s.RevealRandomChar()
	assert.Len(t, s.RevealedCharacters, 2)
	s.RevealRandomChar() // word_length/2 == 3, so this third reveal is still within budget
	assert.LessOrEqual(t, len(s.RevealedCharacters), s.WordLength/2)

	hint := s.HintedCurrentWord()
	assert.Len(t, hint, 6)
}

func TestHasTurnEndedWhenEveryoneSolved(t *testing.T) {
	s, _ := newTestSkribbl(t, []string{"apple"}, 120*time.Second)
	s.NextTurn()
	assert.False(t, s.HasTurnEnded())

	for id := range s.Players {
		if id != s.DrawingUser {
			s.DoGuess(id, "apple")
		}
	}
	assert.True(t, s.HasTurnEnded())
}

func TestRoundEndsWhenRemainingPlayersExhausted(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple", "banana"}, 10*time.Second)
	s.NextTurn() // alice or bob draws, one left in RemainingPlayers
	assert.False(t, s.HasRoundEnded())
	s.NextTurn() // the other drawer, RemainingPlayers now empty until next refill
	assert.True(t, s.HasRoundEnded())
	_ = clock
}

func TestIsFinishedOnLastRound(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple", "banana"}, 1*time.Second)
	s.NextTurn()
	s.NextTurn()
	assert.Equal(t, 1, s.CurrentRound)
	assert.True(t, s.IsFinished(), "single-round game ends once every player has drawn")
	_ = clock
}

func TestEndTurnAwardsDrawer(t *testing.T) {
	s, clock := newTestSkribbl(t, []string{"apple"}, 100*time.Second)
	s.NextTurn()
	clock.advance(50 * time.Second)
	s.EndTurn()
	assert.Equal(t, uint32(125), s.Players[s.DrawingUser].Score)
}

func TestRemoveUserDropsFromRemaining(t *testing.T) {
	s, _ := newTestSkribbl(t, []string{"apple"}, 100*time.Second)
	s.AddPlayer("carl", termibbl.Username{Name: "carl"})
	s.RemoveUser("carl")
	for _, id := range s.RemainingPlayers {
		assert.NotEqual(t, termibbl.PlayerId("carl"), id)
	}
	assert.NotContains(t, s.Players, termibbl.PlayerId("carl"))
}

func TestAddPlayerIsIdempotent(t *testing.T) {
	s, _ := newTestSkribbl(t, []string{"apple"}, 100*time.Second)
	before := len(s.Players)
	s.AddPlayer("alice", termibbl.Username{Name: "alice"})
	assert.Len(t, s.Players, before)
}
