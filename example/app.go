// Package example is a small user directory built on hxview. It is served
// by `hxview serve` and doubles as a tour of the API: a layout view with
// regions and subviews, a collection view, a detail view that loads its
// model from the route, and a static page.
//
//	store := example.NewStore()
//	reg := hxview.NewRegistry()
//	example.Init(store, reg)
//
//	sessions := session.New(example.NewSession(example.SessionOptions{Registry: reg}), session.Options{})
//	http.ListenAndServe(":8080", sessions.Handler())
package example

import (
	"context"
	"html/template"
	"sync"

	"github.com/a-h/templ"
	"github.com/sirupsen/logrus"

	"github.com/pthm/hxview"
	"github.com/pthm/hxview/lib/session"
)

var (
	storeMu sync.RWMutex
	store   = NewStore()
)

func currentStore() *Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

// Init makes s the store every view reads from and registers the views
// with reg.
func Init(s *Store, reg *hxview.Registry) {
	storeMu.Lock()
	store = s
	storeMu.Unlock()

	RegisterViews(reg)
}

// Routes returns the directory's route table.
func Routes() []hxview.Route {
	return []hxview.Route{
		{URL: "", View: "DirectoryView"},
		{URL: "roles/:role", View: "DirectoryView"},
		{URL: "users/:id", View: "UserView"},
		{URL: "about", View: "AboutView"},
	}
}

var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.title}}</title>
<script src="https://unpkg.com/htmx.org@2.0.4"></script>
</head>
<body hx-boost="true"></body>
</html>`))

// Layout is the page every session renders into. Boosted links keep
// navigation inside the application.
func Layout(title string) templ.Component {
	return hxview.HTMLTemplate(layoutTmpl)(hxview.Data{"title": title})
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	Registry *hxview.Registry
	Routes   []hxview.Route

	// ViewsPath must match the registry's Prefix.
	ViewsPath string

	// Root is the mount selector inside Layout. Defaults to "body".
	Root   string
	Logger logrus.FieldLogger
}

// NewSession returns a session.NewFunc that builds one routed application
// per client.
func NewSession(opts SessionOptions) session.NewFunc {
	if opts.Routes == nil {
		opts.Routes = Routes()
	}
	if opts.Logger == nil {
		opts.Logger = hxview.DefaultLogger()
	}

	return func(ctx context.Context, id string) (*hxview.Application, error) {
		log := opts.Logger.WithField("session", id)

		router, err := hxview.NewRouter(hxview.RouterOptions{
			Routes:    opts.Routes,
			ViewsPath: opts.ViewsPath,
			Loader:    opts.Registry,
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}

		app, err := hxview.NewApplication(hxview.AppOptions{
			El:     opts.Root,
			Layout: Layout("Directory"),
			Router: router,
			Logger: log,
		})
		if err != nil {
			router.Close()
			return nil, err
		}
		return app, nil
	}
}
