// Package codec implements the length-delimited binary wire format
// exchanged between a session and a connected client. Every frame is
// a 4-byte big-endian length prefix followed by a single tagged
// message: one byte selecting the message type, then its fields.
//
// No example in the retrieval pack defines a protocol shaped like
// this one (a self-delimiting, tagged sum-type binary frame for a
// bespoke game protocol), so the format is built directly on
// encoding/binary and bufio rather than adapted from a third-party
// serialization library; see the design notes for the full
// justification.
package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"termibbl"
)

// MaxFrameSize bounds a single frame's payload. A client announcing a
// bigger frame is a ProtocolError: the connection is closed.
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge is returned by FrameReader.ReadFrame when the
// announced payload exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("codec: frame exceeds maximum size")

// ErrUnknownTag is returned when a payload's leading tag byte does
// not match any known message type for the direction being decoded.
var ErrUnknownTag = errors.New("codec: unknown message tag")

// FrameReader reads length-delimited frames off a stream. It is not
// safe for concurrent use; a session owns exactly one.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r for frame-at-a-time reads.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame blocks until one full frame's payload has been read, or
// an error occurs. io.EOF is returned verbatim when the stream ends
// cleanly between frames.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var length uint32
	if err := binary.Read(f.r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadLine reads a single LF-terminated, trimmed line — used once per
// connection for the username handshake, before frame-based traffic
// begins.
func (f *FrameReader) ReadLine() (string, error) {
	line, err := f.r.ReadString('\n')
	if err != nil && len(line) == 0 {
		return "", err
	}
	return trimEOL(line), nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// WriteFrame writes one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		panic(fmt.Sprintf("codec: refusing to encode oversize frame (%d bytes)", len(payload)))
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// --- shared primitive encoding -------------------------------------------------

type writer struct{ buf []byte }

func (w *writer) byte(b byte) { w.buf = append(w.buf, b) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) i64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) str(s string) {
	if len(s) > 1<<16-1 {
		s = s[:1<<16-1]
	}
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) strs(ss []string) {
	w.u16(uint16(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *writer) username(u termibbl.Username) {
	w.str(u.Name)
	w.str(u.Identifier)
}

func (w *writer) coord(c termibbl.Coord) {
	w.u16(c.X)
	w.u16(c.Y)
}

func (w *writer) line(l termibbl.Line) {
	w.coord(l.From)
	w.coord(l.To)
	w.byte(byte(l.Color))
	w.byte(l.Width)
}

func (w *writer) lines(ls []termibbl.Line) {
	w.u32(uint32(len(ls)))
	for _, l := range ls {
		w.line(l)
	}
}

type reader struct {
	buf []byte
	pos int
}

var errShortBuffer = errors.New("codec: frame ended before expected field")

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, errShortBuffer
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, errShortBuffer
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i64() (int64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, errShortBuffer
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", errShortBuffer
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) strs() ([]string, error) {
	n, err := r.u16()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = r.str()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *reader) username() (termibbl.Username, error) {
	name, err := r.str()
	if err != nil {
		return termibbl.Username{}, err
	}
	identifier, err := r.str()
	if err != nil {
		return termibbl.Username{}, err
	}
	return termibbl.Username{Name: name, Identifier: identifier}, nil
}

func (r *reader) coord() (termibbl.Coord, error) {
	x, err := r.u16()
	if err != nil {
		return termibbl.Coord{}, err
	}
	y, err := r.u16()
	if err != nil {
		return termibbl.Coord{}, err
	}
	return termibbl.Coord{X: x, Y: y}, nil
}

func (r *reader) line() (termibbl.Line, error) {
	from, err := r.coord()
	if err != nil {
		return termibbl.Line{}, err
	}
	to, err := r.coord()
	if err != nil {
		return termibbl.Line{}, err
	}
	color, err := r.byte()
	if err != nil {
		return termibbl.Line{}, err
	}
	width, err := r.byte()
	if err != nil {
		return termibbl.Line{}, err
	}
	return termibbl.Line{From: from, To: to, Color: termibbl.CanvasColor(color), Width: width}, nil
}

func (r *reader) lines() ([]termibbl.Line, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]termibbl.Line, n)
	for i := range out {
		out[i], err = r.line()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *reader) done() bool { return r.pos == len(r.buf) }
