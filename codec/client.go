package codec

import (
	"fmt"

	"termibbl"
)

const (
	tagJoin byte = iota
	tagChat
	tagDraw
	tagClearCanvas
	tagCommand
	tagPong
)

// EncodeClient serializes a ClientMsg into a frame payload (without
// the length prefix; WriteFrame adds that).
func EncodeClient(msg termibbl.ClientMsg) []byte {
	w := &writer{}
	switch m := msg.(type) {
	case termibbl.JoinMsg:
		w.byte(tagJoin)
		w.str(m.Name)
		w.str(string(m.Room))
	case termibbl.ChatMsg:
		w.byte(tagChat)
		w.str(m.Text)
	case termibbl.DrawMsg:
		w.byte(tagDraw)
		w.line(m.Line)
	case termibbl.ClearCanvasMsg:
		w.byte(tagClearCanvas)
	case termibbl.CommandMsg:
		w.byte(tagCommand)
		w.str(m.Name)
		w.strs(m.Args)
	case termibbl.PongMsg:
		w.byte(tagPong)
	default:
		panic(fmt.Sprintf("codec: unsupported ClientMsg type %T", msg))
	}
	return w.buf
}

// DecodeClient parses a frame payload produced by EncodeClient.
func DecodeClient(payload []byte) (termibbl.ClientMsg, error) {
	r := &reader{buf: payload}
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagJoin:
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		room, err := r.str()
		if err != nil {
			return nil, err
		}
		return termibbl.JoinMsg{Name: name, Room: termibbl.RoomKey(room)}, nil
	case tagChat:
		text, err := r.str()
		if err != nil {
			return nil, err
		}
		return termibbl.ChatMsg{Text: text}, nil
	case tagDraw:
		line, err := r.line()
		if err != nil {
			return nil, err
		}
		return termibbl.DrawMsg{Line: line}, nil
	case tagClearCanvas:
		return termibbl.ClearCanvasMsg{}, nil
	case tagCommand:
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		args, err := r.strs()
		if err != nil {
			return nil, err
		}
		return termibbl.CommandMsg{Name: name, Args: args}, nil
	case tagPong:
		return termibbl.PongMsg{}, nil
	default:
		return nil, ErrUnknownTag
	}
}
