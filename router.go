package hxview

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/pthm/hxview/lib/events"
)

// Navigation is published by a Router once a matched route's view has been
// loaded, constructed and given its model. It is the only contract between
// a Router and an Application.
type Navigation struct {
	View     Viewer
	Name     string
	Params   []string
	Fragment string

	ctx context.Context
}

// Context returns the context the navigation was started with.
func (n Navigation) Context() context.Context {
	if n.ctx == nil {
		return context.Background()
	}
	return n.ctx
}

// NavigationFailure is published when a matched route could not produce a
// view: the module failed to load, the factory failed, or LoadModel
// returned an error.
type NavigationFailure struct {
	Name     string
	Params   []string
	Fragment string
	Err      error
}

// RouteHandler runs when a fragment matches a registered pattern.
type RouteHandler func(ctx context.Context, fragment string, params []string) *Pending

// RouterOptions configures a Router.
type RouterOptions struct {
	// Routes is the ordered route table. Earlier entries win when several
	// patterns match the same fragment.
	Routes []Route

	// ViewsPath is prepended to view names before they are passed to the
	// Loader. Defaults to DefaultViewsPath.
	ViewsPath string

	Loader Loader
	Logger logrus.FieldLogger
}

type routeEntry struct {
	route   Route
	re      *regexp.Regexp
	handler RouteHandler
}

// Router turns URL fragments into views.
//
// Every descriptor of RouterOptions.Routes is registered with a generated
// handler. When a fragment matches, the handler loads the named view module
// through the Loader on its own goroutine, constructs the view, calls
// LoadModel when the view implements ModelLoader, and publishes a
// Navigation on Navigations().
//
// Overlapping navigations resolve as last-navigation-wins: a load that
// finishes after a newer navigation has started is discarded and its
// Pending resolves with ErrSuperseded.
type Router struct {
	mu        sync.RWMutex
	entries   []*routeEntry
	viewsPath string
	loader    Loader
	log       logrus.FieldLogger

	seq       atomic.Uint64
	publishMu sync.Mutex
	inflight  sync.WaitGroup

	navigations *events.Bus[Navigation]
	failures    *events.Bus[NavigationFailure]
}

// NewRouter creates a router and registers every route in opts.Routes.
func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("hxview: router requires a Loader")
	}

	r := &Router{
		viewsPath:   opts.ViewsPath,
		loader:      opts.Loader,
		log:         opts.Logger,
		navigations: events.NewBus[Navigation](),
		failures:    events.NewBus[NavigationFailure](),
	}
	if r.viewsPath == "" {
		r.viewsPath = DefaultViewsPath
	}
	if r.log == nil {
		r.log = DefaultLogger()
	}
	r.log = r.log.WithField("component", "router")

	onPanic := func(recovered any) {
		r.log.WithField("panic", recovered).Error("navigation subscriber panicked")
	}
	r.navigations.OnPanic = onPanic
	r.failures.OnPanic = onPanic

	for _, route := range opts.Routes {
		if route.View == "" {
			return nil, fmt.Errorf("hxview: route %q has no view", route.URL)
		}
		if err := r.Route(route.URL, route.View, r.routeCallback(route.View)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Route registers handler for pattern under name. Routes registered
// earlier take precedence.
func (r *Router) Route(pattern, name string, handler RouteHandler) error {
	re, err := compileRoute(pattern)
	if err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("hxview: route %q has no handler", pattern)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &routeEntry{
		route:   Route{URL: pattern, View: name},
		re:      re,
		handler: handler,
	})
	r.log.WithFields(logrus.Fields{"pattern": pattern, "view": name}).Debug("route registered")
	return nil
}

// Routes returns the registered route table in match order.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Route, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.route)
	}
	return out
}

// ViewsPath returns the prefix used to resolve view names.
func (r *Router) ViewsPath() string {
	return r.viewsPath
}

// Navigations returns the bus on which successful navigations are
// published.
func (r *Router) Navigations() *events.Bus[Navigation] {
	return r.navigations
}

// Failures returns the bus on which failed navigations are published.
func (r *Router) Failures() *events.Bus[NavigationFailure] {
	return r.failures
}

// Match returns the route and parameters fragment resolves to, without
// navigating.
func (r *Router) Match(fragment string) (Route, []string, bool) {
	e, params := r.match(normalizeFragment(fragment))
	if e == nil {
		return Route{}, nil, false
	}
	return e.route, params, true
}

func (r *Router) match(fragment string) (*routeEntry, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if params, ok := extractParams(e.re, fragment); ok {
			return e, params
		}
	}
	return nil, nil
}

// Navigate matches fragment against the route table and runs the matching
// handler. It returns ErrNoRoute when nothing matches; otherwise the
// returned Pending resolves once the navigation has been published,
// superseded or has failed.
func (r *Router) Navigate(ctx context.Context, fragment string) (*Pending, error) {
	fragment = normalizeFragment(fragment)
	e, params := r.match(fragment)
	if e == nil {
		r.log.WithField("fragment", fragment).Debug("no route")
		return nil, fmt.Errorf("%w: %q", ErrNoRoute, fragment)
	}
	return e.handler(ctx, fragment, params), nil
}

// URL builds the fragment for the first route showing view, filling its
// parameters in order.
func (r *Router) URL(view string, params ...string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.route.View == view {
			return buildFragment(e.route.URL, params)
		}
	}
	return "", fmt.Errorf("%w: no route shows %q", ErrNoRoute, view)
}

// Wait blocks until every in-flight navigation has resolved.
func (r *Router) Wait() {
	r.inflight.Wait()
}

// Close waits for in-flight navigations and drops every subscriber.
func (r *Router) Close() {
	r.inflight.Wait()
	r.navigations.Close()
	r.failures.Close()
}

// routeCallback builds the handler registered for a route descriptor.
func (r *Router) routeCallback(name string) RouteHandler {
	return func(ctx context.Context, fragment string, params []string) *Pending {
		seq := r.seq.Add(1)
		p := newPending()
		log := r.log.WithFields(logrus.Fields{
			"view":   name,
			"params": params,
			"seq":    seq,
		})

		r.inflight.Add(1)
		go func() {
			defer r.inflight.Done()
			nav, err := r.load(ctx, log, seq, name, fragment, params)
			p.resolve(nav, err)
		}()
		return p
	}
}

// construct calls factory, reporting a panic as an error.
func construct(factory Factory) (v Viewer, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("factory panicked: %v", p)
		}
	}()
	return factory()
}

// load runs one navigation to completion.
func (r *Router) load(ctx context.Context, log logrus.FieldLogger, seq uint64, name, fragment string, params []string) (Navigation, error) {
	fail := func(err error) (Navigation, error) {
		log.WithError(err).Error("navigation failed")
		r.failures.Publish(NavigationFailure{Name: name, Params: params, Fragment: fragment, Err: err})
		return Navigation{}, fmt.Errorf("%w: %s: %w", ErrLoadFailed, name, err)
	}

	factory, err := r.loader.Load(ctx, r.viewsPath+name)
	if err != nil {
		return fail(err)
	}
	if r.stale(seq) {
		log.Debug("navigation superseded before construction")
		return Navigation{}, ErrSuperseded
	}

	view, err := construct(factory)
	if err == nil && noView(view) {
		err = fmt.Errorf("factory returned no view")
	}
	if err != nil {
		return fail(err)
	}

	if ml, ok := view.(ModelLoader); ok {
		if err := ml.LoadModel(ctx, params...); err != nil {
			view.Base().Remove()
			return fail(fmt.Errorf("load model: %w", err))
		}
	}

	nav := Navigation{View: view, Name: name, Params: params, Fragment: fragment, ctx: ctx}

	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	if r.stale(seq) {
		view.Base().Remove()
		log.Debug("navigation superseded")
		return Navigation{}, ErrSuperseded
	}
	r.navigations.Publish(nav)
	log.Info("navigated")
	return nav, nil
}

// stale reports whether a newer navigation has started since seq.
func (r *Router) stale(seq uint64) bool {
	return r.seq.Load() != seq
}

// Pending is the eventual outcome of a navigation.
type Pending struct {
	done chan struct{}
	nav  Navigation
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(nav Navigation, err error) {
	p.nav = nav
	p.err = err
	close(p.done)
}

// Done is closed once the navigation has resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the navigation resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Navigation, error) {
	select {
	case <-p.done:
		return p.nav, p.err
	case <-ctx.Done():
		return Navigation{}, ctx.Err()
	}
}
