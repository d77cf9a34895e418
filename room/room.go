// Package room implements the turn/round scheduler: a single
// goroutine per room that owns all game state and serializes every
// event affecting it, modeled on the teacher's Game.Play select loop
// (one case per event, one cancellable timer for the current
// deadline).
package room

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"termibbl"
	"termibbl/skribbl"
	"termibbl/word"
)

// Phase is the room's coarse lifecycle state.
type Phase int

const (
	Lobby Phase = iota
	InGame
)

func (p Phase) String() string {
	if p == InGame {
		return "InGame"
	}
	return "Lobby"
}

// Outbound is how a room delivers a message to one participant. It
// is supplied by the session actor that owns the connection; a room
// never touches a socket directly.
type Outbound func(termibbl.ServerMsg)

type client struct {
	id   termibbl.PlayerId
	name termibbl.Username
	send Outbound
}

// Room is a single-threaded scheduler for one game. Every exported
// method enqueues an event and returns immediately; all state
// mutation happens inside Run's goroutine.
type Room struct {
	Key  termibbl.RoomKey
	Opts termibbl.GameOpts

	log   *logrus.Logger
	clock termibbl.Clock
	rng   *rand.Rand

	events chan any
	done   chan struct{}

	// population is maintained only inside Run's goroutine but read
	// with atomic loads from gameserver's matchmaking tick, which is
	// the one piece of state a room exposes outside its own loop.
	population int32

	phase   Phase
	clients map[termibbl.PlayerId]*client
	game    *skribbl.Skribbl
}

// New builds a room ready to Run. rng must not be shared with any
// other room: each room's randomness is independent, per the
// concurrency model.
func New(key termibbl.RoomKey, opts termibbl.GameOpts, clock termibbl.Clock, rng *rand.Rand, log *logrus.Logger) *Room {
	return &Room{
		Key:     key,
		Opts:    opts,
		log:     log,
		clock:   clock,
		rng:     rng,
		events:  make(chan any, 64),
		done:    make(chan struct{}),
		clients: make(map[termibbl.PlayerId]*client),
	}
}

func (r *Room) String() string { return fmt.Sprintf("room %s", r.Key) }

// Population returns the last known number of connected clients.
// Safe to call from any goroutine.
func (r *Room) Population() int { return int(atomic.LoadInt32(&r.population)) }

// --- event types ----------------------------------------------------------

type evClientConnect struct {
	id   termibbl.PlayerId
	name termibbl.Username
	send Outbound
}
type evClientDisconnect struct{ id termibbl.PlayerId }
type evInbound struct {
	id  termibbl.PlayerId
	msg termibbl.ClientMsg
}
type evGameStart struct{}
type evTurnStart struct{}
type evTurnOver struct{}
type evGameEnd struct{}

// Connect enqueues a new participant. send delivers messages destined
// for this specific client.
func (r *Room) Connect(id termibbl.PlayerId, name termibbl.Username, send Outbound) {
	r.events <- evClientConnect{id: id, name: name, send: send}
}

// Disconnect enqueues a departure.
func (r *Room) Disconnect(id termibbl.PlayerId) {
	r.events <- evClientDisconnect{id: id}
}

// Inbound enqueues a decoded client message.
func (r *Room) Inbound(id termibbl.PlayerId, msg termibbl.ClientMsg) {
	r.events <- evInbound{id: id, msg: msg}
}

// Stop terminates the room's event loop. Events still queued when the
// loop sees the stop are not processed. Stop must be called at most
// once.
func (r *Room) Stop() { close(r.done) }

// Run is the room's event loop; callers start it with `go room.Run()`.
// It owns every piece of mutable state the room touches, so nothing
// outside this goroutine (other than atomic Population reads) may
// read or write it.
func (r *Room) Run() {
	var turnTimer *time.Timer
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	r.log.Debugf("%s: starting", r)

	for {
		select {
		case <-r.done:
			if turnTimer != nil {
				turnTimer.Stop()
			}
			r.log.Debugf("%s: stopped", r)
			return

		case ev := <-r.events:
			r.handle(ev, &turnTimer)

		case <-tick.C:
			if r.phase == InGame {
				r.onTick()
			}
		}
	}
}

func (r *Room) handle(ev any, turnTimer **time.Timer) {
	switch e := ev.(type) {
	case evClientConnect:
		r.onConnect(e)
	case evClientDisconnect:
		r.onDisconnect(e, turnTimer)
	case evInbound:
		r.onInboundMessage(e)
	case evGameStart:
		r.onGameStart()
		r.enqueueInternal(evTurnStart{})
	case evTurnStart:
		r.onTurnStart(turnTimer)
	case evTurnOver:
		r.onTurnOver(turnTimer)
	case evGameEnd:
		r.onGameEnd()
	default:
		r.log.Warnf("%s: unknown event %T", r, ev)
	}
}

// enqueueInternal posts an event the room generates for itself
// (TurnStart after GameStart, TurnOver after the timer fires, GameEnd
// after the last turn) from a separate goroutine, so a full events
// channel never blocks the loop that produces it.
func (r *Room) enqueueInternal(ev any) {
	go func() { r.events <- ev }()
}

func (r *Room) onConnect(e evClientConnect) {
	r.clients[e.id] = &client{id: e.id, name: e.name, send: e.send}
	atomic.StoreInt32(&r.population, int32(len(r.clients)))

	r.broadcastExcept(e.id, termibbl.SystemMsg{Text: fmt.Sprintf("%s joined the room", e.name)})

	switch r.phase {
	case Lobby:
		if len(r.clients) >= 2 {
			r.enqueueInternal(evGameStart{})
		} else {
			e.send(termibbl.SystemMsg{Text: "waiting for more users to join the game.."})
		}
	case InGame:
		r.game.AddPlayer(e.id, e.name)
		e.send(r.initialState(e.id))
	}
}

func (r *Room) onDisconnect(e evClientDisconnect, turnTimer **time.Timer) {
	delete(r.clients, e.id)
	atomic.StoreInt32(&r.population, int32(len(r.clients)))

	if r.phase != InGame {
		return
	}

	wasDrawing := r.game.DrawingUser == e.id
	r.game.RemoveUser(e.id)
	r.broadcastAll(termibbl.PlayerLeftMsg{Player: e.id})

	if wasDrawing {
		r.onTurnOver(turnTimer)
	}
}

func (r *Room) onInboundMessage(e evInbound) {
	client, ok := r.clients[e.id]
	if !ok {
		r.log.Debugf("%s: inbound message from unknown client %s", r, e.id)
		return
	}

	switch m := e.msg.(type) {
	case termibbl.ChatMsg:
		r.onChat(client, m.Text)
	case termibbl.DrawMsg:
		r.onDraw(client, m.Line)
	case termibbl.ClearCanvasMsg:
		r.onClearCanvas(client)
	case termibbl.CommandMsg:
		r.onCommand(client, m)
	case termibbl.PongMsg:
		// keepalive only; nothing to do.
	}
}

func (r *Room) onChat(c *client, text string) {
	if r.phase != InGame {
		r.broadcastAll(termibbl.SystemMsg{Text: fmt.Sprintf("%s: %s", c.name, text)})
		return
	}

	if !r.game.CanGuess(c.id) {
		// Chat from the drawer or a player who already solved is
		// ordinary chat, but only visible to others who also cannot
		// guess, so a not-yet-solved player never sees a restated
		// answer.
		r.broadcastToNonGuessers(c.id, termibbl.SystemMsg{Text: fmt.Sprintf("%s: %s", c.name, text)})
		return
	}

	before := r.game.Players[c.id].Score
	dist, ok := r.game.DoGuess(c.id, text)
	if !ok {
		return
	}

	switch {
	case dist == 0:
		c.send(termibbl.GuessMsg{Player: c.id, Correct: true, ScoreWon: int(r.game.Players[c.id].Score - before)})
		r.broadcastExcept(c.id, termibbl.SystemMsg{Text: fmt.Sprintf("%s guessed it!", c.name)})
		if r.game.HasTurnEnded() {
			r.enqueueInternal(evTurnOver{})
		}
	case word.IsClose(text, r.game.CurrentWord()):
		c.send(termibbl.SystemMsg{Text: "You're very close!"})
	default:
		r.broadcastToNonGuessers(c.id, termibbl.GuessMsg{Player: c.id, Text: text})
	}
}

func (r *Room) onDraw(c *client, line termibbl.Line) {
	if r.phase != InGame || r.game.DrawingUser != c.id {
		c.send(termibbl.SystemMsg{Text: "It is not your turn to draw!"})
		return
	}
	r.game.Canvas = append(r.game.Canvas, line)
	r.broadcastExcept(c.id, termibbl.DrawBroadcastMsg{Line: line})
}

func (r *Room) onClearCanvas(c *client) {
	if r.phase != InGame || r.game.DrawingUser != c.id {
		c.send(termibbl.SystemMsg{Text: "It is not your turn to draw!"})
		return
	}
	r.game.ClearCanvas()
	r.broadcastExcept(c.id, termibbl.ClearCanvasBroadcastMsg{})
}

func (r *Room) onCommand(c *client, m termibbl.CommandMsg) {
	switch m.Name {
	case "kick":
		// No authorization model is specified for kicking a player;
		// rather than guess one, the command is acknowledged but
		// never acted on.
		c.send(termibbl.SystemMsg{Text: "kick is not supported"})
	default:
		c.send(termibbl.SystemMsg{Text: fmt.Sprintf("unknown command %q", m.Name)})
	}
}

func (r *Room) onGameStart() {
	r.phase = InGame

	order := make([]termibbl.PlayerId, 0, len(r.clients))
	names := make(map[termibbl.PlayerId]termibbl.Username, len(r.clients))
	for id, c := range r.clients {
		order = append(order, id)
		names[id] = c.name
	}

	opts := r.Opts
	if len(opts.Words) == 0 {
		opts.Words = defaultWords
	}
	r.game = skribbl.New(order, names, opts, r.clock, r.rng)
	r.game.LastRound = opts.Rounds
}

func (r *Room) onTurnStart(turnTimer **time.Timer) {
	r.game.NextTurn()

	if *turnTimer != nil {
		(*turnTimer).Stop()
	}
	*turnTimer = time.AfterFunc(r.Opts.RoundDuration, func() {
		r.enqueueInternal(evTurnOver{})
	})

	for id, c := range r.clients {
		revealedWord := ""
		if id == r.game.DrawingUser {
			revealedWord = r.game.CurrentWord()
		}
		c.send(termibbl.TurnStartedMsg{
			Drawer:      r.game.DrawingUser,
			WordLength:  r.game.WordLength,
			Word:        revealedWord,
			RoundNumber: r.game.CurrentRound,
			Duration:    r.Opts.RoundDuration,
		})
	}
}

func (r *Room) onTurnOver(turnTimer **time.Timer) {
	if *turnTimer != nil {
		(*turnTimer).Stop()
		*turnTimer = nil
	}
	if r.game == nil {
		return
	}

	r.game.EndTurn()
	r.broadcastAll(termibbl.SystemMsg{Text: fmt.Sprintf("The word was: %s", r.game.CurrentWord())})
	r.broadcastAll(termibbl.TurnOverMsg{Word: r.game.CurrentWord()})

	if r.game.HasRoundEnded() {
		r.broadcastAll(termibbl.RoundOverMsg{Round: r.game.CurrentRound})
	}

	if r.game.IsFinished() {
		r.enqueueInternal(evGameEnd{})
	} else {
		r.enqueueInternal(evTurnStart{})
	}
}

func (r *Room) onGameEnd() {
	snaps := make([]termibbl.PlayerSnapshot, 0, len(r.game.Players))
	for id, p := range r.game.Players {
		snaps = append(snaps, termibbl.PlayerSnapshot{Id: id, Name: p.Username, Score: int(p.Score)})
	}
	r.broadcastAll(termibbl.GameOverMsg{Players: snaps})

	r.phase = Lobby
	r.game = nil
}

func (r *Room) onTick() {
	remaining := r.game.TurnEndTime.Sub(r.clock.Now())
	half := r.Opts.RoundDuration / 2
	quarter := r.Opts.RoundDuration / 4

	revealed := len(r.game.RevealedCharacters)
	shouldReveal := (revealed == 0 && remaining <= half) || (revealed == 1 && remaining <= quarter)
	if shouldReveal {
		if idx, ch, ok := r.game.RevealRandomChar(); ok {
			r.broadcastExcept(r.game.DrawingUser, termibbl.HintRevealedMsg{Index: idx, Char: ch})
		}
	}

	r.broadcastAll(termibbl.TimeChangedMsg{Remaining: remaining})
}

func (r *Room) initialState(self termibbl.PlayerId) termibbl.InitialStateMsg {
	snaps := make([]termibbl.PlayerSnapshot, 0, len(r.game.Players))
	for id, p := range r.game.Players {
		snaps = append(snaps, termibbl.PlayerSnapshot{Id: id, Name: p.Username, Score: int(p.Score)})
	}

	revealedWord := ""
	if r.game.DrawingUser == self {
		revealedWord = r.game.CurrentWord()
	}

	return termibbl.InitialStateMsg{
		Self:        self,
		Room:        r.Key,
		Players:     snaps,
		Canvas:      r.game.Canvas,
		Phase:       r.phase.String(),
		Round:       r.game.CurrentRound,
		Rounds:      r.game.LastRound,
		CurrentWord: revealedWord,
		TimeLeft:    r.game.TurnEndTime.Sub(r.clock.Now()),
	}
}

func (r *Room) broadcastAll(msg termibbl.ServerMsg) {
	for _, c := range r.clients {
		c.send(msg)
	}
}

func (r *Room) broadcastExcept(except termibbl.PlayerId, msg termibbl.ServerMsg) {
	for id, c := range r.clients {
		if id == except {
			continue
		}
		c.send(msg)
	}
}

func (r *Room) broadcastToNonGuessers(sender termibbl.PlayerId, msg termibbl.ServerMsg) {
	for id, c := range r.clients {
		if id == sender {
			continue
		}
		if r.game != nil && r.game.CanGuess(id) {
			continue
		}
		c.send(msg)
	}
}

var defaultWords = []string{
	"apple", "banana", "giraffe", "computer", "mountain",
	"bicycle", "elephant", "sandwich", "umbrella", "volcano",
}
