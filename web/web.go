package web

import "html/template"

// indexTmpl renders the single status page: room count, queue length
// and per-room population. There is no per-game history to browse, so
// unlike the teacher's multi-page template set this is one template.
var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>termibbl</title></head>
<body>
<h1>termibbl</h1>
<p>{{.Rooms}} room(s), {{.QueueLen}} player(s) queued.</p>
<table border="1">
<tr><th>Room</th><th>Players</th></tr>
{{range $key, $pop := .Population}}<tr><td>{{$key}}</td><td>{{$pop}}</td></tr>
{{end}}
</table>
</body></html>`))
