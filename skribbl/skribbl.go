// Package skribbl implements the per-room game state machine: turn
// rotation, guess scoring, progressive hint reveal and the round/turn
// lifecycle a room actor drives. Nothing in this package touches a
// network connection; in the server it is driven only by room events.
package skribbl

import (
	"math/rand"
	"time"
	"unicode"

	"termibbl"
	"termibbl/word"
)

// GamePlayer is one participant's standing within a game. Score only
// ever grows; HasSolved resets at the start of every turn.
type GamePlayer struct {
	Username  termibbl.Username
	Score     uint32
	HasSolved bool
}

// State is the authoritative, observable snapshot of a room's game.
// Every field here is part of what a room must be able to render
// into a ServerMsg without consulting anything else.
type State struct {
	CurrentRound, LastRound int
	TurnEndTime             time.Time
	WordLength              int
	RevealedCharacters      map[int]rune
	Canvas                  []termibbl.Line
	RemainingPlayers        []termibbl.PlayerId
	Players                 map[termibbl.PlayerId]*GamePlayer
	DrawingUser             termibbl.PlayerId
}

// Skribbl wraps State with the ground-truth word, the immutable game
// options and the per-room clock/RNG that make every operation below
// deterministic in tests.
type Skribbl struct {
	State

	currentWord string
	opts        termibbl.GameOpts
	words       *word.Cycle[string]
	clock       termibbl.Clock
	rng         *rand.Rand

	// TimerHandle is opaque to Skribbl, which never reads or writes
	// it. The room actor does not use it either: it keeps its turn
	// timer as a local in Room.Run.
	TimerHandle any
}

// New builds a fresh game for the given players and options. The
// order of order is not kept: players are stored in a map, and each
// round's drawing order is by sorted id (see allPlayerIDs). No turn is
// active until NextTurn is called.
func New(order []termibbl.PlayerId, names map[termibbl.PlayerId]termibbl.Username, opts termibbl.GameOpts, clock termibbl.Clock, rng *rand.Rand) *Skribbl {
	players := make(map[termibbl.PlayerId]*GamePlayer, len(order))
	for _, id := range order {
		players[id] = &GamePlayer{Username: names[id]}
	}

	s := &Skribbl{
		State: State{
			Players:            players,
			RevealedCharacters: map[int]rune{},
		},
		opts:  opts,
		words: word.NewCycle(append([]string(nil), opts.Words...)),
		clock: clock,
		rng:   rng,
	}
	return s
}

// NextTurn pops the next drawer from RemainingPlayers, refilling from
// every known player (and bumping CurrentRound) once the round is
// exhausted. It resets per-turn state: canvas, revealed characters
// (whitespace pre-revealed), HasSolved, and the turn deadline.
func (s *Skribbl) NextTurn() {
	if len(s.RemainingPlayers) == 0 {
		s.RemainingPlayers = s.allPlayerIDs()
		s.CurrentRound++
	}

	s.DrawingUser, s.RemainingPlayers = s.RemainingPlayers[0], s.RemainingPlayers[1:]

	s.currentWord = s.words.Next()
	s.WordLength = len([]rune(s.currentWord))

	s.RevealedCharacters = map[int]rune{}
	for i, r := range []rune(s.currentWord) {
		if unicode.IsSpace(r) {
			s.RevealedCharacters[i] = r
		}
	}

	s.Canvas = nil
	s.TurnEndTime = s.clock.Now().Add(s.opts.RoundDuration)

	for _, p := range s.Players {
		p.HasSolved = false
	}
}

// allPlayerIDs returns every known player id in a stable order,
// derived from the map since Go map iteration order is undefined;
// State.Players being a map is fine for lookup, but round refill
// needs determinism, so we sort by id string.
func (s *Skribbl) allPlayerIDs() []termibbl.PlayerId {
	ids := make([]termibbl.PlayerId, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []termibbl.PlayerId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// CanGuess reports whether id may currently submit a guess: it is not
// the drawer and has not already solved this turn.
func (s *Skribbl) CanGuess(id termibbl.PlayerId) bool {
	p, ok := s.Players[id]
	if !ok || id == s.DrawingUser {
		return false
	}
	return !p.HasSolved
}

// DoGuess scores a guess attempt. ok is false if id cannot currently
// guess, in which case dist is meaningless. On an exact match
// (dist==0) the player is credited and, if anyone else has already
// solved this turn, the remaining time is compressed.
func (s *Skribbl) DoGuess(id termibbl.PlayerId, text string) (dist int, ok bool) {
	if !s.CanGuess(id) {
		return 0, false
	}

	dist = word.Distance(text, s.currentWord)
	if dist != 0 {
		return dist, true
	}

	now := s.clock.Now()
	remaining := s.TurnEndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	if s.anyoneSolved() {
		compressed := remaining - remaining/2
		if compressed < 0 {
			compressed = 0
		}
		s.TurnEndTime = now.Add(compressed)
	}

	fraction := 0.0
	if s.opts.RoundDuration > 0 {
		fraction = float64(remaining) / float64(s.opts.RoundDuration)
	}
	bonus := 50 + int(50*fraction)

	p := s.Players[id]
	p.Score += uint32(bonus)
	p.HasSolved = true

	return 0, true
}

func (s *Skribbl) anyoneSolved() bool {
	for _, p := range s.Players {
		if p.HasSolved {
			return true
		}
	}
	return false
}

// RevealRandomChar reveals one more not-yet-revealed, non-whitespace
// character, guarded by the word_length/2 budget, and reports which
// index and character were revealed. ok is false (and the reveal
// skipped) once that budget is spent.
func (s *Skribbl) RevealRandomChar() (idx int, ch rune, ok bool) {
	if len(s.RevealedCharacters) >= s.WordLength/2 {
		return 0, 0, false
	}
	idx, ch = word.RevealOne(s.currentWord, s.RevealedCharacters, s.rng)
	return idx, ch, true
}

// HasTurnEnded reports whether every non-drawing player has solved.
func (s *Skribbl) HasTurnEnded() bool {
	for id, p := range s.Players {
		if id == s.DrawingUser {
			continue
		}
		if !p.HasSolved {
			return false
		}
	}
	return true
}

// HasRoundEnded reports whether the current turn's deadline has
// passed, or there is nobody left to draw this round.
func (s *Skribbl) HasRoundEnded() bool {
	return len(s.RemainingPlayers) == 0 || !s.clock.Now().Before(s.TurnEndTime)
}

// IsFinished reports whether the game itself is over: the round has
// ended and it was the last scheduled round.
func (s *Skribbl) IsFinished() bool {
	return s.HasRoundEnded() && s.CurrentRound == s.LastRound
}

// EndTurn awards the drawer a flat +50 for having drawn at all, plus
// the same time-based solve bonus formula used for solvers (another
// flat +50 plus up to +50 more the earlier the turn ended), computed
// against the remaining time at the moment the turn actually ends.
func (s *Skribbl) EndTurn() {
	remaining := s.TurnEndTime.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	fraction := 0.0
	if s.opts.RoundDuration > 0 {
		fraction = float64(remaining) / float64(s.opts.RoundDuration)
	}
	drawBonus := 50
	solveBonus := 50 + int(50*fraction)
	bonus := drawBonus + solveBonus

	if p, ok := s.Players[s.DrawingUser]; ok {
		p.Score += uint32(bonus)
	}
}

// HintedCurrentWord renders the secret word with unrevealed
// characters masked as '?'.
func (s *Skribbl) HintedCurrentWord() string {
	runes := []rune(s.currentWord)
	out := make([]rune, len(runes))
	for i, r := range runes {
		if _, ok := s.RevealedCharacters[i]; ok {
			out[i] = r
		} else {
			out[i] = '?'
		}
	}
	return string(out)
}

// ClearCanvas discards every stroke drawn so far this turn.
func (s *Skribbl) ClearCanvas() { s.Canvas = nil }

// CurrentWord exposes the ground-truth word; only the room actor
// should call this, and only when assembling a message bound for the
// current drawer.
func (s *Skribbl) CurrentWord() string { return s.currentWord }

// AddPlayer inserts a new participant. It is idempotent: re-adding an
// existing id is a no-op. New players are appended to
// RemainingPlayers so they draw later in the current round rather
// than immediately.
func (s *Skribbl) AddPlayer(id termibbl.PlayerId, name termibbl.Username) {
	if _, ok := s.Players[id]; ok {
		return
	}
	s.Players[id] = &GamePlayer{Username: name}
	s.RemainingPlayers = append(s.RemainingPlayers, id)
}

// RemoveUser deletes a participant from the game. The caller (room)
// is responsible for scheduling a new turn if the departing player
// was the drawer.
func (s *Skribbl) RemoveUser(id termibbl.PlayerId) {
	delete(s.Players, id)
	s.RemainingPlayers = removeID(s.RemainingPlayers, id)
}

func removeID(ids []termibbl.PlayerId, target termibbl.PlayerId) []termibbl.PlayerId {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
