package conf

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Manager is a long-lived service (the game server, which also runs
// the matchmaking ticker, and the status dashboard) that the control
// plane starts
// concurrently and shuts down gracefully in the same order.
type Manager interface {
	fmt.Stringer
	Start()
	Shutdown()
}

// Run starts every registered manager, blocks until SIGINT/SIGTERM or
// the configuration's context is cancelled, and then shuts every
// manager down before returning.
func (c *Conf) Run() {
	for _, m := range c.man {
		c.Log.Debugf("starting %s", m)
		go m.Start()
	}
	c.run = true

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt, syscall.SIGTERM)
	select {
	case <-intr:
		c.Log.Info("caught interrupt, shutting down")
	case <-c.Ctx.Done():
		c.Log.Info("shutdown requested")
	}

	for _, m := range c.man {
		c.Log.Debugf("shutting down %s", m)
		m.Shutdown()
	}
	c.Log.Info("shutdown complete")
}
