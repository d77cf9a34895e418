package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (d *Dashboard) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (d *Dashboard) rooms(w http.ResponseWriter, r *http.Request) {
	snap := d.srv.Describe()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (d *Dashboard) index(w http.ResponseWriter, r *http.Request) {
	snap := d.srv.Describe()
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "max-age=5")
	if err := indexTmpl.Execute(w, snap); err != nil {
		d.log.Errorf("%s: template: %v", d, err)
	}
}
