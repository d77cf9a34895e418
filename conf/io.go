package conf

import (
	"context"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Load parses flags, optionally loads a TOML file over the defaults,
// and returns the resolved configuration. Without --conf the defaults
// are used. A --conf file that cannot be opened or parsed is a
// ConfigError: Load logs it and exits the process (logrus Fatal).
func Load() *Conf {
	if !flagsParsed() {
		flagParse()
	}
	LoadEnv()

	c := defaultConf

	if debug {
		c.Log.SetLevel(logrus.DebugLevel)
	}

	if cfile != "" {
		file, err := os.Open(cfile)
		if err != nil {
			c.Log.WithError(err).Fatal("failed to open configuration file")
		}
		defer file.Close()

		if err := applyFile(&c, file); err != nil {
			c.Log.WithError(err).Fatal("failed to parse configuration file")
		}
	}

	c.Ctx, c.Kill = context.WithCancel(context.Background())
	return &c
}

func applyFile(c *Conf, r io.Reader) error {
	var data fileConf
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return err
	}

	if data.Proto.TCPPort != 0 {
		c.TCPPort = data.Proto.TCPPort
	}
	if data.Proto.WSPort != 0 {
		c.WSPort = data.Proto.WSPort
	}
	c.Ping = data.Proto.Ping
	if data.Proto.TimeoutMS != 0 {
		c.TCPTimeout = msToDuration(data.Proto.TimeoutMS)
	}

	if data.Game.RoundDurationSec != 0 {
		c.DefaultOpts.RoundDuration = secToDuration(data.Game.RoundDurationSec)
	}
	if data.Game.Rounds != 0 {
		c.DefaultOpts.Rounds = int(data.Game.Rounds)
	}
	if data.Game.Width != 0 {
		c.DefaultOpts.CanvasWidth = uint16(data.Game.Width)
	}
	if data.Game.Height != 0 {
		c.DefaultOpts.CanvasHeight = uint16(data.Game.Height)
	}
	if data.Game.HintCount != 0 {
		c.DefaultOpts.HintCount = int(data.Game.HintCount)
	}
	if data.Game.MaxPlayers != 0 {
		c.DefaultOpts.MaxPlayers = int(data.Game.MaxPlayers)
	}
	if len(data.Game.Words) > 0 {
		c.DefaultOpts.Words = data.Game.Words
	}

	if data.Matchmaking.TickMS != 0 {
		c.MatchmakingTick = msToDuration(data.Matchmaking.TickMS)
	}
	if data.Matchmaking.NewRoomThreshold != 0 {
		c.NewRoomThreshold = int(data.Matchmaking.NewRoomThreshold)
	}

	c.WebEnabled = data.Web.Enabled
	if data.Web.Port != 0 {
		c.WebPort = data.Web.Port
	}

	return nil
}
