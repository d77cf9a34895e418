// Command termibbl-server runs the matchmaking queue, the room
// registry and the status dashboard as one process, wiring them
// together through conf the way the teacher's cmd/server/main.go
// wires db, proto and web around a single conf.Conf.
package main

import (
	"termibbl/conf"
	"termibbl/gameserver"
	"termibbl/web"
)

func main() {
	c := conf.Load()
	c.Log.Debug("starting termibbl-server")

	srv := gameserver.New(c)
	c.Register(srv)

	dashboard := web.New(c, srv)
	c.Register(dashboard)

	c.Run()
}
