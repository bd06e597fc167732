// Package session keeps one hxview Application per browser.
//
// An Application owns a single current view, so a server handling many
// clients needs one shell per client. Store hands each browser its own
// shell, identified by a cookie, and closes shells that have been idle
// longer than the TTL.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/pthm/hxview"
)

const (
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
	DefaultCookie          = "hxview_session"
)

// NewFunc builds the application for a new session.
type NewFunc func(ctx context.Context, id string) (*hxview.Application, error)

// Options configures a Store.
type Options struct {
	TTL     time.Duration
	Cleanup time.Duration
	Cookie  string

	// Secure marks the session cookie as HTTPS-only.
	Secure bool

	Logger logrus.FieldLogger
}

// Store maps session IDs to applications.
type Store struct {
	mu     sync.Mutex
	cache  *gocache.Cache
	newApp NewFunc
	ttl    time.Duration
	cookie string
	secure bool
	log    logrus.FieldLogger
}

// New creates a store. Evicted and expired applications are closed
// together with their routers.
func New(newApp NewFunc, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Cleanup <= 0 {
		opts.Cleanup = DefaultCleanupInterval
	}
	if opts.Cookie == "" {
		opts.Cookie = DefaultCookie
	}
	if opts.Logger == nil {
		opts.Logger = hxview.DefaultLogger()
	}

	s := &Store{
		cache:  gocache.New(opts.TTL, opts.Cleanup),
		newApp: newApp,
		ttl:    opts.TTL,
		cookie: opts.Cookie,
		secure: opts.Secure,
		log:    opts.Logger.WithField("component", "session"),
	}
	s.cache.OnEvicted(func(id string, value any) {
		if app, ok := value.(*hxview.Application); ok {
			closeApp(app)
			s.log.WithField("session", id).Debug("session closed")
		}
	})
	return s
}

func closeApp(app *hxview.Application) {
	app.Close()
	if r := app.Router(); r != nil {
		r.Close()
	}
}

// Get returns the application of session id and extends its lifetime.
func (s *Store) Get(id string) (*hxview.Application, bool) {
	value, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	app, ok := value.(*hxview.Application)
	if !ok {
		return nil, false
	}
	s.cache.Set(id, app, s.ttl)
	return app, true
}

// Open returns the application of session id, creating and starting a new
// session when id is unknown. The returned id differs from the given one
// when a new session was created; unknown ids are never reused.
func (s *Store) Open(ctx context.Context, id string) (*hxview.Application, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if app, ok := s.Get(id); ok {
			return app, id, nil
		}
	}

	id = uuid.NewString()
	app, err := s.newApp(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("session: new application: %w", err)
	}
	if err := app.Start(ctx, id); err != nil {
		closeApp(app)
		return nil, "", fmt.Errorf("session: start: %w", err)
	}
	s.cache.Set(id, app, s.ttl)
	s.log.WithField("session", id).Debug("session opened")
	return app, id, nil
}

// Delete closes and forgets session id.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions, including expired sessions not
// yet cleaned up.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Close closes every session.
func (s *Store) Close() {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}

// Handler serves every request through the requesting client's
// application, issuing a session cookie to new clients.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(s.cookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}

		app, newID, err := s.Open(r.Context(), id)
		if err != nil {
			s.log.WithError(err).Error("open session")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if newID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookie,
				Value:    newID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		app.ServeHTTP(w, r)
	})
}
