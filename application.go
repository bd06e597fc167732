package hxview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/a-h/templ"
	"github.com/sirupsen/logrus"

	"github.com/pthm/hxview/lib/dom"
)

// DefaultRoot is the selector of the mount element used when AppOptions.El
// is empty.
const DefaultRoot = "body"

// AppOptions configures an Application.
type AppOptions struct {
	// El is the selector of the root mount element inside the layout.
	// Defaults to DefaultRoot. It is resolved lazily on first use.
	El string

	// Layout produces the page document the root element lives in.
	// Defaults to DefaultLayout.
	Layout templ.Component

	// Router, when set, drives the application: every navigation it
	// publishes is shown, every failure is recorded.
	Router *Router

	// Swap is sent as HX-Reswap with fragment responses, together with an
	// HX-Retarget pointing at El. Defaults to SwapInner.
	Swap SwapMode

	// Initialize is called by Start with the forwarded arguments.
	Initialize func(ctx context.Context, app *Application, args ...any) error

	Logger logrus.FieldLogger
}

// Application is the top-level shell. It owns one root mount element and
// at most one current view. Switching views removes the outgoing view
// unless the same instance is shown again.
//
// Application is safe for concurrent use. ServeHTTP serializes requests,
// so each response reflects the navigation it started.
type Application struct {
	mu      sync.Mutex
	serveMu sync.Mutex

	selector   string
	layout     templ.Component
	swap       SwapMode
	doc        *dom.Document
	root       *dom.Node
	router     *Router
	initialize func(ctx context.Context, app *Application, args ...any) error

	current       Viewer
	currentName   string
	currentParams []string
	lastErr       error
	lastFailure   *NavigationFailure

	unsubscribe []func()
	closed      bool
	log         logrus.FieldLogger
}

// NewApplication creates an application and, when a router is given,
// starts listening to its navigations.
func NewApplication(opts AppOptions) (*Application, error) {
	a := &Application{
		selector:   opts.El,
		layout:     opts.Layout,
		swap:       opts.Swap,
		router:     opts.Router,
		initialize: opts.Initialize,
		log:        opts.Logger,
	}
	if a.selector == "" {
		a.selector = DefaultRoot
	}
	if _, err := dom.Compile(a.selector); err != nil {
		return nil, &BindingError{Kind: KindElement, View: "application", Key: a.selector, Err: err}
	}
	if a.layout == nil {
		a.layout = DefaultLayout()
	}
	if a.swap == "" {
		a.swap = SwapInner
	}
	if a.log == nil {
		a.log = DefaultLogger()
	}
	a.log = a.log.WithField("component", "application")

	if a.router != nil {
		a.unsubscribe = append(a.unsubscribe,
			a.router.Navigations().Subscribe(a.onNavigate),
			a.router.Failures().Subscribe(a.onFailure),
		)
	}
	return a, nil
}

// Start runs the Initialize hook with args.
func (a *Application) Start(ctx context.Context, args ...any) error {
	if a.initialize == nil {
		return nil
	}
	if err := a.initialize(ctx, a, args...); err != nil {
		return fmt.Errorf("hxview: initialize: %w", err)
	}
	a.log.Debug("started")
	return nil
}

// Router returns the router driving the application, if any.
func (a *Application) Router() *Router {
	return a.router
}

// Show makes view the current view. The previous view is removed unless it
// is the same instance; the incoming view is always rendered and attached
// to the root element. On a render failure the failed view is removed and
// the root is left empty.
func (a *Application) Show(ctx context.Context, view Viewer, name string, params []string) (Viewer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	shown, err := a.show(ctx, view, name, params)
	a.lastErr = err
	return shown, err
}

func (a *Application) show(ctx context.Context, view Viewer, name string, params []string) (Viewer, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if noView(view) {
		return nil, fmt.Errorf("hxview: show %q: nil view", name)
	}
	if err := a.ensureEl(ctx); err != nil {
		return nil, err
	}

	base := view.Base()
	if a.current != nil && a.current.Base() != base {
		a.close()
	}

	if _, err := base.Render(ctx); err != nil {
		base.Remove()
		a.current = nil
		a.currentName, a.currentParams = "", nil
		dom.Empty(a.root)
		a.log.WithError(err).WithField("view", name).Error("render failed")
		return nil, err
	}
	a.open(base)

	a.current = view
	a.currentName = name
	a.currentParams = params
	a.log.WithFields(logrus.Fields{"view": name, "params": params}).Info("shown")
	return view, nil
}

// ensureEl resolves the root element, rendering the layout on first use.
func (a *Application) ensureEl(ctx context.Context) error {
	if a.root != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := a.layout.Render(ctx, &buf); err != nil {
		return fmt.Errorf("%w: layout: %w", ErrTemplate, err)
	}
	doc, err := dom.Parse(buf.String())
	if err != nil {
		return fmt.Errorf("%w: layout: %w", ErrTemplate, err)
	}
	root, err := doc.Find(a.selector)
	if err != nil {
		return &BindingError{Kind: KindElement, View: "application", Key: a.selector, Err: err}
	}
	if root == nil {
		return &BindingError{Kind: KindElement, View: "application", Key: a.selector}
	}
	a.doc = doc
	a.root = root
	return nil
}

// open empties the root and attaches the view's element.
func (a *Application) open(view *View) {
	dom.Empty(a.root)
	dom.Append(a.root, view.El())
}

// close removes the current view.
func (a *Application) close() {
	if a.current == nil {
		return
	}
	a.current.Base().Remove()
	a.current = nil
	a.currentName, a.currentParams = "", nil
}

func (a *Application) onNavigate(nav Navigation) {
	if _, err := a.Show(nav.Context(), nav.View, nav.Name, nav.Params); err != nil {
		a.log.WithError(err).WithField("view", nav.Name).Warn("navigation not shown")
	}
}

func (a *Application) onFailure(f NavigationFailure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastFailure = &f
}

// CurrentView returns the view on screen, or nil.
func (a *Application) CurrentView() Viewer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// CurrentRoute returns the name and parameters the current view was shown
// with.
func (a *Application) CurrentRoute() (string, []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentName, a.currentParams
}

// LastFailure returns the most recent navigation failure reported by the
// router.
func (a *Application) LastFailure() (NavigationFailure, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastFailure == nil {
		return NavigationFailure{}, false
	}
	return *a.lastFailure, true
}

// Root returns the root mount element, resolving it if needed.
func (a *Application) Root(ctx context.Context) (*dom.Node, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureEl(ctx); err != nil {
		return nil, err
	}
	return a.root, nil
}

// Document returns the page document, resolving it if needed.
func (a *Application) Document(ctx context.Context) (*dom.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureEl(ctx); err != nil {
		return nil, err
	}
	return a.doc, nil
}

// WriteHTML writes the whole page.
func (a *Application) WriteHTML(ctx context.Context, w io.Writer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureEl(ctx); err != nil {
		return err
	}
	return a.doc.Render(w)
}

// WriteFragment writes the content of the root element only.
func (a *Application) WriteFragment(ctx context.Context, w io.Writer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureEl(ctx); err != nil {
		return err
	}
	_, err := io.WriteString(w, dom.InnerHTML(a.root))
	return err
}

// Close removes the current view and stops listening to the router.
// Calling Close again does nothing.
func (a *Application) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	a.unsubscribe = nil
	a.close()
	if a.root != nil {
		dom.Empty(a.root)
	}
	a.log.Debug("closed")
}

// ServeHTTP navigates to the request path and writes the result.
//
// HTMX requests that are not boosted receive only the root element's
// content; everything else receives the full page. Status codes:
//
//	404  no route, or the route's view is not registered
//	409  a newer navigation superseded this one
//	500  the view failed to load, construct or render
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.serveMu.Lock()
	defer a.serveMu.Unlock()

	ctx := r.Context()
	log := a.log.WithFields(requestFields(r))

	if a.router == nil {
		http.Error(w, "no router", http.StatusInternalServerError)
		return
	}

	// Route captures are unescaped once, by the router.
	pending, err := a.router.Navigate(ctx, r.URL.EscapedPath())
	if err != nil {
		http.NotFound(w, r)
		return
	}
	nav, err := pending.Wait(ctx)
	if err == nil {
		err = a.shownError(nav)
	}
	if err != nil {
		if ctx.Err() != nil {
			log.WithError(err).Debug("request cancelled")
			return
		}
		status := statusFor(err)
		log.WithError(err).WithField("status", status).Warn("navigation failed")
		http.Error(w, http.StatusText(status), status)
		return
	}

	var buf bytes.Buffer
	fragment := IsHTMX(r) && !IsBoosted(r)
	if fragment {
		err = a.WriteFragment(ctx, &buf)
	} else {
		err = a.WriteHTML(ctx, &buf)
	}
	if err != nil {
		log.WithError(err).Error("write page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if IsHTMX(r) {
		if trigger := NavigateTrigger(nav); trigger != "" {
			w.Header().Set("HX-Trigger", trigger)
		}
		if fragment {
			w.Header().Set("HX-Push-Url", "/"+nav.Fragment)
			w.Header().Set("HX-Retarget", a.selector)
			w.Header().Set("HX-Reswap", string(a.swap))
		}
	}
	log.WithField("view", nav.Name).Debug("served")
	_, _ = w.Write(buf.Bytes())
}

// shownError reports the show error of nav when it is not the current
// view.
func (a *Application) shownError(nav Navigation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil && a.current.Base() == nav.View.Base() {
		return nil
	}
	if a.lastErr != nil {
		return a.lastErr
	}
	return fmt.Errorf("hxview: %s was not shown", nav.Name)
}

func statusFor(err error) int {
	switch {
	case IsSuperseded(err):
		return http.StatusConflict
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
