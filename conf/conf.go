// Package conf specifies and loads server configuration, and
// coordinates the startup/shutdown of the long-lived services that
// make up a termibbl server (the game server, which also runs the
// matchmaking ticker, and the status dashboard).
package conf

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"termibbl"
)

// fileConf is the on-disk (TOML) shape of the configuration, kept
// separate from Conf so the public API can expose richer Go types
// (time.Duration, termibbl.GameOpts) than TOML can express directly.
type fileConf struct {
	Debug bool `toml:"debug"`
	Proto struct {
		TCPPort   uint `toml:"tcp_port"`
		WSPort    uint `toml:"ws_port"`
		Ping      bool `toml:"ping"`
		TimeoutMS uint `toml:"timeout_ms"`
	} `toml:"proto"`
	Game struct {
		RoundDurationSec uint     `toml:"round_duration_sec"`
		Rounds           uint     `toml:"rounds"`
		Width            uint     `toml:"width"`
		Height           uint     `toml:"height"`
		HintCount        uint     `toml:"hint_count"`
		MaxPlayers       uint     `toml:"max_players"`
		Words            []string `toml:"words"`
	} `toml:"game"`
	Matchmaking struct {
		TickMS           uint `toml:"tick_ms"`
		NewRoomThreshold uint `toml:"new_room_threshold"`
	} `toml:"matchmaking"`
	Web struct {
		Enabled bool `toml:"enabled"`
		Port    uint `toml:"port"`
	} `toml:"web"`
}

// Conf is the fully-resolved, in-memory configuration shared by every
// long-lived service.
type Conf struct {
	Log *logrus.Logger

	Ctx  context.Context
	Kill context.CancelFunc

	TCPPort    uint
	WSPort     uint
	Ping       bool
	TCPTimeout time.Duration

	DefaultOpts termibbl.GameOpts

	MatchmakingTick  time.Duration
	NewRoomThreshold int

	WebEnabled bool
	WebPort    uint

	man []Manager
	run bool
}

var defaultConf = Conf{
	Log: logrus.StandardLogger(),

	TCPPort:    2342,
	WSPort:     2343,
	Ping:       true,
	TCPTimeout: 20 * time.Second,

	DefaultOpts: termibbl.DefaultGameOpts(),

	MatchmakingTick:  2 * time.Second,
	NewRoomThreshold: 3,

	WebEnabled: true,
	WebPort:    8080,
}

var (
	debug bool
	cfile string
	envf  string
)

func init() {
	flag.UintVar(&defaultConf.TCPPort, "p", defaultConf.TCPPort, "TCP port to accept raw connections on")
	flag.UintVar(&defaultConf.WSPort, "wsport", defaultConf.WSPort, "Port to accept WebSocket connections on")
	flag.BoolVar(&defaultConf.Ping, "ping", defaultConf.Ping, "Enable keepalive pings")
	flag.DurationVar(&defaultConf.DefaultOpts.RoundDuration, "round-duration", defaultConf.DefaultOpts.RoundDuration, "Default turn duration")
	flag.IntVar(&defaultConf.DefaultOpts.Rounds, "rounds", defaultConf.DefaultOpts.Rounds, "Default number of rounds per game")
	flag.BoolVar(&defaultConf.WebEnabled, "web", defaultConf.WebEnabled, "Enable the status dashboard")
	flag.UintVar(&defaultConf.WebPort, "wwwport", defaultConf.WebPort, "Port for the status dashboard")
	flag.BoolVar(&debug, "debug", debug, "Enable debug-level logging")
	flag.StringVar(&cfile, "conf", "", "Path to a termibbl.toml configuration file")
	flag.StringVar(&envf, "env", "", "Path to a .env file to load into the environment")
}

// LoadEnv loads .env-style key=value pairs into the process
// environment, mirroring how container-style deployments in the
// retrieved pack bootstrap configuration. Load calls it after flags
// are parsed, since the path comes from --env. It does nothing if no
// --env path was given, and only logs a warning if the file cannot be
// loaded.
func LoadEnv() {
	if envf == "" {
		return
	}
	if err := godotenv.Load(envf); err != nil {
		logrus.WithError(err).Warn("failed to load env file")
	}
}

// Register adds a long-lived service to the supervision list. It
// panics if called after Run, since every manager must be known
// before the interrupt handler begins waiting.
func (c *Conf) Register(m Manager) {
	if c.run {
		panic("conf: Register called after Start")
	}
	c.man = append(c.man, m)
}
