package codec

import (
	"fmt"
	"time"

	"termibbl"
)

const (
	tagInitialState byte = iota
	tagPlayerJoined
	tagPlayerLeft
	tagTurnStarted
	tagHintRevealed
	tagGuess
	tagDrawBroadcast
	tagClearCanvasBroadcast
	tagTurnOver
	tagRoundOver
	tagGameOver
	tagSystem
	tagPing
	tagTimeChanged
)

func (w *writer) duration(d time.Duration) { w.i64(int64(d)) }

func (r *reader) duration() (time.Duration, error) {
	v, err := r.i64()
	return time.Duration(v), err
}

func (w *writer) snapshot(p termibbl.PlayerSnapshot) {
	w.str(string(p.Id))
	w.username(p.Name)
	w.u32(uint32(p.Score))
}

func (r *reader) snapshot() (termibbl.PlayerSnapshot, error) {
	id, err := r.str()
	if err != nil {
		return termibbl.PlayerSnapshot{}, err
	}
	name, err := r.username()
	if err != nil {
		return termibbl.PlayerSnapshot{}, err
	}
	score, err := r.u32()
	if err != nil {
		return termibbl.PlayerSnapshot{}, err
	}
	return termibbl.PlayerSnapshot{Id: termibbl.PlayerId(id), Name: name, Score: int(score)}, nil
}

func (w *writer) snapshots(ps []termibbl.PlayerSnapshot) {
	w.u16(uint16(len(ps)))
	for _, p := range ps {
		w.snapshot(p)
	}
}

func (r *reader) snapshots() ([]termibbl.PlayerSnapshot, error) {
	n, err := r.u16()
	if err != nil {
		return nil, err
	}
	out := make([]termibbl.PlayerSnapshot, n)
	for i := range out {
		out[i], err = r.snapshot()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeServer serializes a ServerMsg into a frame payload.
func EncodeServer(msg termibbl.ServerMsg) []byte {
	w := &writer{}
	switch m := msg.(type) {
	case termibbl.InitialStateMsg:
		w.byte(tagInitialState)
		w.str(string(m.Self))
		w.str(string(m.Room))
		w.snapshots(m.Players)
		w.lines(m.Canvas)
		w.str(m.Phase)
		w.u32(uint32(m.Round))
		w.u32(uint32(m.Rounds))
		w.str(m.CurrentWord)
		w.duration(m.TimeLeft)
	case termibbl.PlayerJoinedMsg:
		w.byte(tagPlayerJoined)
		w.snapshot(m.Player)
	case termibbl.PlayerLeftMsg:
		w.byte(tagPlayerLeft)
		w.str(string(m.Player))
	case termibbl.TurnStartedMsg:
		w.byte(tagTurnStarted)
		w.str(string(m.Drawer))
		w.u32(uint32(m.WordLength))
		w.str(m.Word)
		w.u32(uint32(m.RoundNumber))
		w.duration(m.Duration)
	case termibbl.HintRevealedMsg:
		w.byte(tagHintRevealed)
		w.u32(uint32(m.Index))
		w.u32(uint32(m.Char))
	case termibbl.GuessMsg:
		w.byte(tagGuess)
		w.str(string(m.Player))
		w.str(m.Text)
		w.byte(boolByte(m.Correct))
		w.byte(boolByte(m.Close))
		w.u32(uint32(m.ScoreWon))
	case termibbl.DrawBroadcastMsg:
		w.byte(tagDrawBroadcast)
		w.line(m.Line)
	case termibbl.ClearCanvasBroadcastMsg:
		w.byte(tagClearCanvasBroadcast)
	case termibbl.TurnOverMsg:
		w.byte(tagTurnOver)
		w.str(m.Word)
	case termibbl.RoundOverMsg:
		w.byte(tagRoundOver)
		w.u32(uint32(m.Round))
	case termibbl.GameOverMsg:
		w.byte(tagGameOver)
		w.snapshots(m.Players)
	case termibbl.SystemMsg:
		w.byte(tagSystem)
		w.str(m.Text)
	case termibbl.PingMsg:
		w.byte(tagPing)
	case termibbl.TimeChangedMsg:
		w.byte(tagTimeChanged)
		w.duration(m.Remaining)
	default:
		panic(fmt.Sprintf("codec: unsupported ServerMsg type %T", msg))
	}
	return w.buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// DecodeServer parses a frame payload produced by EncodeServer.
func DecodeServer(payload []byte) (termibbl.ServerMsg, error) {
	r := &reader{buf: payload}
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagInitialState:
		self, err := r.str()
		if err != nil {
			return nil, err
		}
		room, err := r.str()
		if err != nil {
			return nil, err
		}
		players, err := r.snapshots()
		if err != nil {
			return nil, err
		}
		canvas, err := r.lines()
		if err != nil {
			return nil, err
		}
		phase, err := r.str()
		if err != nil {
			return nil, err
		}
		round, err := r.u32()
		if err != nil {
			return nil, err
		}
		rounds, err := r.u32()
		if err != nil {
			return nil, err
		}
		word, err := r.str()
		if err != nil {
			return nil, err
		}
		left, err := r.duration()
		if err != nil {
			return nil, err
		}
		return termibbl.InitialStateMsg{
			Self: termibbl.PlayerId(self), Room: termibbl.RoomKey(room),
			Players: players, Canvas: canvas, Phase: phase,
			Round: int(round), Rounds: int(rounds),
			CurrentWord: word, TimeLeft: left,
		}, nil
	case tagPlayerJoined:
		p, err := r.snapshot()
		if err != nil {
			return nil, err
		}
		return termibbl.PlayerJoinedMsg{Player: p}, nil
	case tagPlayerLeft:
		id, err := r.str()
		if err != nil {
			return nil, err
		}
		return termibbl.PlayerLeftMsg{Player: termibbl.PlayerId(id)}, nil
	case tagTurnStarted:
		drawer, err := r.str()
		if err != nil {
			return nil, err
		}
		length, err := r.u32()
		if err != nil {
			return nil, err
		}
		word, err := r.str()
		if err != nil {
			return nil, err
		}
		round, err := r.u32()
		if err != nil {
			return nil, err
		}
		dur, err := r.duration()
		if err != nil {
			return nil, err
		}
		return termibbl.TurnStartedMsg{
			Drawer: termibbl.PlayerId(drawer), WordLength: int(length),
			Word: word, RoundNumber: int(round), Duration: dur,
		}, nil
	case tagHintRevealed:
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		ch, err := r.u32()
		if err != nil {
			return nil, err
		}
		return termibbl.HintRevealedMsg{Index: int(idx), Char: rune(ch)}, nil
	case tagGuess:
		player, err := r.str()
		if err != nil {
			return nil, err
		}
		text, err := r.str()
		if err != nil {
			return nil, err
		}
		correct, err := r.byte()
		if err != nil {
			return nil, err
		}
		close, err := r.byte()
		if err != nil {
			return nil, err
		}
		won, err := r.u32()
		if err != nil {
			return nil, err
		}
		return termibbl.GuessMsg{
			Player: termibbl.PlayerId(player), Text: text,
			Correct: correct != 0, Close: close != 0, ScoreWon: int(won),
		}, nil
	case tagDrawBroadcast:
		line, err := r.line()
		if err != nil {
			return nil, err
		}
		return termibbl.DrawBroadcastMsg{Line: line}, nil
	case tagClearCanvasBroadcast:
		return termibbl.ClearCanvasBroadcastMsg{}, nil
	case tagTurnOver:
		word, err := r.str()
		if err != nil {
			return nil, err
		}
		return termibbl.TurnOverMsg{Word: word}, nil
	case tagRoundOver:
		round, err := r.u32()
		if err != nil {
			return nil, err
		}
		return termibbl.RoundOverMsg{Round: int(round)}, nil
	case tagGameOver:
		players, err := r.snapshots()
		if err != nil {
			return nil, err
		}
		return termibbl.GameOverMsg{Players: players}, nil
	case tagSystem:
		text, err := r.str()
		if err != nil {
			return nil, err
		}
		return termibbl.SystemMsg{Text: text}, nil
	case tagPing:
		return termibbl.PingMsg{}, nil
	case tagTimeChanged:
		d, err := r.duration()
		if err != nil {
			return nil, err
		}
		return termibbl.TimeChangedMsg{Remaining: d}, nil
	default:
		return nil, ErrUnknownTag
	}
}
