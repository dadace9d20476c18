package httpapi

import (
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
)

// page is one browser route. The client script renders the view named by
// data-view and talks to the JSON API.
type page struct {
	Path  string
	Title string
	View  string
}

var pages = []page{
	{Path: "/", Title: "Sign in", View: "login"},
	{Path: "/create-account", Title: "Create account", View: "signup"},
	{Path: "/dashboard", Title: "Inbox", View: "inbox"},
	{Path: "/dashboard/read", Title: "Read", View: "read"},
	{Path: "/dashboard/sent", Title: "Sent", View: "sent"},
	{Path: "/dashboard/compose", Title: "Compose", View: "compose"},
	{Path: "/dashboard/trash", Title: "Trash", View: "trash"},
	{Path: "/dashboard/drafts", Title: "Drafts", View: "drafts"},
}

var shell = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · goMail</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body data-view="{{.View}}">
<main id="app"></main>
<script src="/static/app.js" defer></script>
</body>
</html>
`))

func (s *server) mountPages(r *mux.Router, staticDir string) {
	for _, p := range pages {
		r.HandleFunc(p.Path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := shell.Execute(w, p); err != nil {
				s.logger.Error("render page", "path", p.Path, "err", err)
			}
		}).Methods(http.MethodGet)
	}

	if staticDir == "" {
		return
	}
	files := http.FileServer(http.Dir(staticDir))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", files)).Methods(http.MethodGet)
	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(staticDir, "favicon.ico"))
	}).Methods(http.MethodGet)
}
