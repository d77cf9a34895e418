// Package termibbl holds the wire-level data model shared by every
// actor in the server: usernames, canvas primitives, player ids and
// the message envelopes exchanged between session and room.
package termibbl

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Username is a display name chosen by a player plus an optional
// server-issued identifier. Display names are not unique: two players
// may both show up as "alice". Identifier disambiguates them and is
// assigned once, by the server, the first time a name collides with
// one already in use; the first holder of a name keeps an empty
// identifier.
type Username struct {
	Name       string
	Identifier string
}

// String renders the username the way a client displays it: the bare
// display name, or "name#identifier" once disambiguated.
func (u Username) String() string {
	if u.Identifier == "" {
		return u.Name
	}
	return u.Name + "#" + u.Identifier
}

// Valid reports whether u's display name is non-empty, printable and
// reasonably short. Identifier is server-issued and not user input,
// so it is not validated here.
func (u Username) Valid() bool {
	if len(u.Name) == 0 || len(u.Name) > 20 {
		return false
	}
	for _, r := range u.Name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// Less orders usernames lexicographically by display name, then by
// identifier, so a client-facing listing (e.g. the final scoreboard)
// has a stable order even among same-named players.
func (u Username) Less(o Username) bool {
	if u.Name != o.Name {
		return u.Name < o.Name
	}
	return u.Identifier < o.Identifier
}

// Coord is a single cell on the shared canvas.
type Coord struct {
	X, Y uint16
}

// CanvasColor indexes a fixed, closed palette. The zero value is the
// palette's first entry (black), matching a freshly-cleared canvas.
type CanvasColor uint8

const (
	ColorBlack CanvasColor = iota
	ColorWhite
	ColorGray
	ColorRed
	ColorOrange
	ColorYellow
	ColorGreen
	ColorTeal
	ColorBlue
	ColorNavy
	ColorPurple
	ColorMagenta
	ColorPink
	ColorBrown
	ColorTan
	ColorCream
	numColors
)

// Palette returns the closed set of colors a client can pick from, in
// a fixed, deterministic swatch order.
func Palette() []CanvasColor {
	p := make([]CanvasColor, numColors)
	for i := range p {
		p[i] = CanvasColor(i)
	}
	return p
}

// Valid reports whether c is a member of Palette().
func (c CanvasColor) Valid() bool { return c < numColors }

// Line is a straight stroke on the canvas, drawn by a single pointer
// gesture, in a single color.
type Line struct {
	From, To Coord
	Color    CanvasColor
	Width    uint8
}

// Cells rasterizes the line with Bresenham's algorithm and returns
// every cell it touches, in traversal order from From to To. The
// result is independent of which endpoint is named From or To, save
// for the direction cells are listed in.
func (l Line) Cells() []Coord {
	x0, y0 := int(l.From.X), int(l.From.Y)
	x1, y1 := int(l.To.X), int(l.To.Y)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	var cells []Coord
	x, y := x0, y0
	for {
		cells = append(cells, Coord{X: uint16(x), Y: uint16(y)})
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return cells
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// PlayerId is a short, URL-safe identifier handed out once per
// session and never reused for the lifetime of the process.
type PlayerId string

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns a random identifier of length n drawn from a
// URL-safe alphabet, suitable both for PlayerId and for room keys. Its
// entropy comes from v4 UUIDs rather than reading crypto/rand
// directly, one drawn every 16 characters. It is not a secret: it
// identifies a session or room, it does not authenticate one.
func NewID(n int) string {
	out := make([]byte, n)
	var block uuid.UUID
	for i := 0; i < n; i++ {
		if i%16 == 0 {
			block = uuid.New()
		}
		out[i] = idAlphabet[int(block[i%16])%len(idAlphabet)]
	}
	return string(out)
}

// NewPlayerId mints a fresh PlayerId.
func NewPlayerId() PlayerId { return PlayerId(NewID(10)) }

// Clock abstracts time.Now so that skribbl and room can be driven by
// a fake clock in tests instead of the wall clock.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock, backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// GameOpts configures a Skribbl round before it starts. It is
// immutable once the room hands it to skribbl.New; mid-round
// configuration changes are out of scope.
type GameOpts struct {
	Words          []string
	RoundDuration  time.Duration
	Rounds         int
	CanvasWidth    uint16
	CanvasHeight   uint16
	HintCount      int // not read by room or skribbl: a turn reveals at most two characters, within WordLength/2
	MaxPlayers     int
}

// DefaultGameOpts mirrors the defaults a client would see absent any
// configuration from a room host.
func DefaultGameOpts() GameOpts {
	return GameOpts{
		RoundDuration: 80 * time.Second,
		Rounds:        3,
		CanvasWidth:   60,
		CanvasHeight:  40,
		HintCount:     2,
		MaxPlayers:    12,
	}
}

// RoomKey is the short, human-typeable code players share to join a
// specific room.
type RoomKey string

func NewRoomKey() RoomKey { return RoomKey(strings.ToUpper(NewID(5))) }
