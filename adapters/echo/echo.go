// Package hxviewecho provides Echo framework integration for hxview
// applications.
//
// Mount a session store onto an Echo instance or group:
//
//	e := echo.New()
//	sessions := session.New(newApp, session.Options{})
//	hxviewecho.Mount(e, sessions)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	hxviewecho.MountGroup(g, sessions)
//
// Requests are handed to the client's application with the mount prefix
// removed, so route fragments stay relative to the mount point.
package hxviewecho

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxview/lib/session"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	path string
}

// WithPath sets the URL path prefix the applications are served under.
// Defaults to "/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// Mount serves every request below the prefix through the requesting
// client's application.
//
//	e := echo.New()
//	hxviewecho.Mount(e, sessions)
//
//	// With options:
//	hxviewecho.Mount(e, sessions, hxviewecho.WithPath("/app/"))
func Mount(e *echo.Echo, store *session.Store, opts ...Option) {
	o := newOptions(opts)
	e.Any(o.path+"*", handler(store))
}

// MountGroup mounts the session handler on an Echo group. This allows
// applications to share middleware with the group (auth, logging, etc.).
//
//	g := e.Group("/app", authMiddleware)
//	hxviewecho.MountGroup(g, sessions)
func MountGroup(g *echo.Group, store *session.Store, opts ...Option) {
	o := newOptions(opts)
	g.Any(o.path+"*", handler(store))
}

func newOptions(opts []Option) *options {
	o := &options{path: "/"}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasSuffix(o.path, "/") {
		o.path += "/"
	}
	return o
}

// handler rewrites the request path to the wildcard remainder before
// serving it through the store.
func handler(store *session.Store) echo.HandlerFunc {
	h := store.Handler()
	return func(c echo.Context) error {
		req := c.Request()
		r := req.Clone(req.Context())
		r.URL.Path = "/" + c.Param("*")
		r.URL.RawPath = ""
		h.ServeHTTP(c.Response(), r)
		return nil
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxviewecho.Render(c, http.StatusOK, myTemplate())
//	}
func Render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response())
}
