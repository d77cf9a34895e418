// Package web serves the read-only status dashboard: room and queue
// counts over HTTP, generalized from the teacher's web manager (a
// conf.Manager wrapping its own http.Server and template set) from
// tournament history pages to a live matchmaking snapshot.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"termibbl/conf"
	"termibbl/gameserver"
)

// Dashboard is the status web service. It implements conf.Manager.
type Dashboard struct {
	conf *conf.Conf
	log  *logrus.Logger
	srv  *gameserver.Server

	server *http.Server
}

// New builds a dashboard reporting on srv's rooms and queue.
func New(c *conf.Conf, srv *gameserver.Server) *Dashboard {
	return &Dashboard{conf: c, log: c.Log, srv: srv}
}

func (d *Dashboard) String() string { return "status dashboard" }

// Start serves the dashboard until Shutdown is called. It is a no-op
// if the dashboard is disabled in configuration.
func (d *Dashboard) Start() {
	if !d.conf.WebEnabled {
		return
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", d.healthz).Methods(http.MethodGet)
	r.HandleFunc("/rooms", d.rooms).Methods(http.MethodGet)
	r.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /")
	}).Methods(http.MethodGet)
	r.HandleFunc("/", d.index).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", d.conf.WebPort)
	d.server = &http.Server{Addr: addr, Handler: r}

	d.log.Debugf("%s: listening on %s", d, addr)
	if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		d.log.Errorf("%s: %v", d, err)
	}
}

// Shutdown stops the dashboard's HTTP server.
func (d *Dashboard) Shutdown() {
	if d.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.log.Errorf("%s: shutdown: %v", d, err)
	}
}
