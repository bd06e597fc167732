package hxview

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxview/lib/dom"
)

var appRoutes = []Route{
	{URL: "", View: "HomeView"},
	{URL: "users/:id", View: "UserView"},
	{URL: "missing", View: "MissingView"},
	{URL: "broken", View: "BrokenView"},
	{URL: "bad-render", View: "BadRenderView"},
}

func newTestApp(t *testing.T, opts AppOptions) *Application {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = DiscardLogger()
	}
	app, err := NewApplication(opts)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func newRoutedApp(t *testing.T) *Application {
	t.Helper()
	reg := testRegistry()
	reg.Add("BrokenView", func() (Viewer, error) { return nil, errors.New("boom") })
	reg.Add("BadRenderView", func() (Viewer, error) { return newBadRenderView() })

	r := newTestRouter(t, appRoutes, reg)
	return newTestApp(t, AppOptions{Router: r})
}

// newBadRenderView renders fine but declares a UI element its markup
// lacks, so every render fails.
func newBadRenderView() (*View, error) {
	return New(nil, Options{
		Name:     "BadRenderView",
		Template: StaticTemplate(`<p>oops</p>`),
		UI:       map[string]string{"missing": ".missing"},
		Logger:   DiscardLogger(),
	})
}

func rootHTML(t *testing.T, app *Application) string {
	t.Helper()
	root, err := app.Root(context.Background())
	require.NoError(t, err)
	return dom.InnerHTML(root)
}

func TestNewApplication_InvalidSelector(t *testing.T) {
	_, err := NewApplication(AppOptions{El: "[broken", Logger: DiscardLogger()})
	require.Error(t, err)
	assert.True(t, IsMissingBinding(err))
}

func TestApplication_RootResolution(t *testing.T) {
	t.Run("default body", func(t *testing.T) {
		app := newTestApp(t, AppOptions{})
		root, err := app.Root(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "body", root.Data)
	})

	t.Run("custom layout", func(t *testing.T) {
		app := newTestApp(t, AppOptions{
			El:     "#app",
			Layout: StaticTemplate(`<html><body><nav>site</nav><div id="app"></div></body></html>`)(nil),
		})
		root, err := app.Root(context.Background())
		require.NoError(t, err)
		v, _ := dom.Attr(root, "id")
		assert.Equal(t, "app", v)
	})

	t.Run("missing element", func(t *testing.T) {
		app := newTestApp(t, AppOptions{El: "#nope"})
		_, err := app.Root(context.Background())
		var be *BindingError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, KindElement, be.Kind)

		_, err = app.Show(context.Background(), mustStaticView(t, "x"), "x", nil)
		assert.True(t, IsMissingBinding(err))
	})
}

func TestApplication_ShowSwitchesViews(t *testing.T) {
	app := newTestApp(t, AppOptions{})
	ctx := context.Background()

	a := mustStaticView(t, `<p class="a">A</p>`)
	b := mustStaticView(t, `<p class="b">B</p>`)

	got, err := app.Show(ctx, a, "A", nil)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, `<div><p class="a">A</p></div>`, rootHTML(t, app))

	_, err = app.Show(ctx, b, "B", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.removed)
	assert.True(t, a.Closed())
	assert.Same(t, b, app.CurrentView())
	assert.Equal(t, `<div><p class="b">B</p></div>`, rootHTML(t, app))

	name, params := app.CurrentRoute()
	assert.Equal(t, "B", name)
	assert.Equal(t, []string{"1"}, params)
}

func TestApplication_ShowSameInstance(t *testing.T) {
	app := newTestApp(t, AppOptions{})
	ctx := context.Background()
	v := mustUserView(t)
	require.NoError(t, v.LoadModel(ctx, "1"))

	_, err := app.Show(ctx, v, "UserView", []string{"1"})
	require.NoError(t, err)
	require.NoError(t, v.LoadModel(ctx, "2"))
	_, err = app.Show(ctx, v, "UserView", []string{"2"})
	require.NoError(t, err)

	assert.Equal(t, 0, v.removed)
	assert.Equal(t, 2, v.afterRender)
	assert.Contains(t, rootHTML(t, app), "User 2")
	assert.Equal(t, 1, strings.Count(rootHTML(t, app), `class="name"`))
}

func TestApplication_ShowRenderFailure(t *testing.T) {
	app := newTestApp(t, AppOptions{})
	ctx := context.Background()

	prev := mustStaticView(t, "prev")
	_, err := app.Show(ctx, prev, "Prev", nil)
	require.NoError(t, err)

	bad, err := newBadRenderView()
	require.NoError(t, err)
	_, err = app.Show(ctx, bad, "BadRenderView", nil)
	require.Error(t, err)
	assert.True(t, IsMissingBinding(err))

	assert.Equal(t, 1, prev.removed)
	assert.True(t, bad.Closed())
	assert.Nil(t, app.CurrentView())
	assert.Empty(t, rootHTML(t, app))
}

func TestApplication_ShowNilView(t *testing.T) {
	app := newTestApp(t, AppOptions{})
	_, err := app.Show(context.Background(), nil, "x", nil)
	require.Error(t, err)
}

func TestApplication_Start(t *testing.T) {
	var got []any
	app := newTestApp(t, AppOptions{
		Initialize: func(ctx context.Context, app *Application, args ...any) error {
			got = args
			return nil
		},
	})
	require.NoError(t, app.Start(context.Background(), "a", 1))
	assert.Equal(t, []any{"a", 1}, got)

	cause := errors.New("init failed")
	failing := newTestApp(t, AppOptions{
		Initialize: func(context.Context, *Application, ...any) error { return cause },
	})
	assert.ErrorIs(t, failing.Start(context.Background()), cause)

	assert.NoError(t, newTestApp(t, AppOptions{}).Start(context.Background()))
}

func TestApplication_Close(t *testing.T) {
	r := newTestRouter(t, appRoutes, testRegistry())
	app, err := NewApplication(AppOptions{Router: r, Logger: DiscardLogger()})
	require.NoError(t, err)
	require.Equal(t, 1, r.Navigations().SubscriberCount())

	v := mustStaticView(t, "x")
	_, err = app.Show(context.Background(), v, "x", nil)
	require.NoError(t, err)

	app.Close()
	app.Close()
	assert.Equal(t, 1, v.removed)
	assert.Nil(t, app.CurrentView())
	assert.Equal(t, 0, r.Navigations().SubscriberCount())
	assert.Equal(t, 0, r.Failures().SubscriberCount())

	_, err = app.Show(context.Background(), mustStaticView(t, "y"), "y", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestApplication_FollowsRouter(t *testing.T) {
	app := newRoutedApp(t)

	result, err := TestNavigate(app, "users/42")
	require.NoError(t, err)
	assert.True(t, result.HTMLContains(`<h1 class="name">User 42</h1>`))

	uv, ok := app.CurrentView().(*userView)
	require.True(t, ok)
	assert.Same(t, result.View, uv)
	name, params := app.CurrentRoute()
	assert.Equal(t, "UserView", name)
	assert.Equal(t, []string{"42"}, params)

	_, err = TestNavigate(app, "")
	require.NoError(t, err)
	assert.Equal(t, 1, uv.removed)
	assert.IsType(t, &staticView{}, app.CurrentView())
}

func TestApplication_RecordsFailures(t *testing.T) {
	app := newRoutedApp(t)

	_, ok := app.LastFailure()
	assert.False(t, ok)

	_, err := TestNavigate(app, "broken")
	require.Error(t, err)

	f, ok := app.LastFailure()
	require.True(t, ok)
	assert.Equal(t, "BrokenView", f.Name)
	assert.EqualError(t, f.Err, "boom")
}

func TestApplication_ServeHTTP(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		htmx     bool
		boosted  bool
		status   int
		contains string
		fragment bool
	}{
		{name: "full page", url: "/users/42", status: http.StatusOK, contains: `<body><div><h1 class="name">User 42</h1>`},
		{name: "htmx fragment", url: "/users/7", htmx: true, status: http.StatusOK, contains: `<div><h1 class="name">User 7</h1>`, fragment: true},
		{name: "boosted gets full page", url: "/users/8", htmx: true, boosted: true, status: http.StatusOK, contains: `<!DOCTYPE html>`},
		{name: "home", url: "/", status: http.StatusOK, contains: `<p class="home">home</p>`},
		{name: "no route", url: "/nowhere", status: http.StatusNotFound},
		{name: "unregistered view", url: "/missing", status: http.StatusNotFound},
		{name: "factory failure", url: "/broken", status: http.StatusInternalServerError},
		{name: "render failure", url: "/bad-render", status: http.StatusInternalServerError},
	}

	app := newRoutedApp(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewTestRequest(http.MethodGet, tt.url)
			if tt.boosted {
				req.WithBoost()
			} else if tt.htmx {
				req.WithHTMX()
			}
			result, err := req.Execute(app)
			require.NoError(t, err)

			require.True(t, result.HasStatus(tt.status), "status = %d", result.StatusCode)
			if tt.contains != "" {
				assert.True(t, result.HTMLContains(tt.contains), result.HTML)
			}
			if tt.fragment {
				assert.False(t, result.HTMLContains("<body>"))
				assert.True(t, result.HasEvent(NavigateEvent))
				assert.Equal(t, tt.url, result.GetHeader("HX-Push-Url"))
				assert.Equal(t, DefaultRoot, result.GetHeader("HX-Retarget"))
				assert.Equal(t, string(SwapInner), result.GetHeader("HX-Reswap"))
			}
		})
	}
}

func TestApplication_ServeHTTPEscapedParams(t *testing.T) {
	tests := []struct {
		url    string
		param  string
		header string
	}{
		{"/users/a%20b", "a b", "User a b"},
		{"/users/a%2520b", "a%20b", "User a%20b"},
		{"/users/a%2Fb", "a/b", "User a/b"},
	}

	app := newRoutedApp(t)

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result, err := TestGet(app, tt.url)
			require.NoError(t, err)
			require.True(t, result.HasStatus(http.StatusOK), "status = %d", result.StatusCode)
			assert.True(t, result.HTMLContains(tt.header), result.HTML)

			name, params := app.CurrentRoute()
			assert.Equal(t, "UserView", name)
			assert.Equal(t, []string{tt.param}, params)
		})
	}
}

func TestApplication_ServeHTTPWithoutRouter(t *testing.T) {
	app := newTestApp(t, AppOptions{})
	result, err := TestGet(app, "/")
	require.NoError(t, err)
	assert.True(t, result.HasStatus(http.StatusInternalServerError))
}

func TestApplication_WriteHTML(t *testing.T) {
	app := newTestApp(t, AppOptions{})
	_, err := app.Show(context.Background(), mustStaticView(t, `<p>hi</p>`), "Hi", nil)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, app.WriteHTML(context.Background(), &sb))
	assert.Equal(t, `<!DOCTYPE html><html><head><meta charset="utf-8"/></head><body><div><p>hi</p></div></body></html>`, sb.String())

	doc, err := app.Document(context.Background())
	require.NoError(t, err)
	found, err := doc.FindAll("p")
	require.NoError(t, err)
	assert.Equal(t, 1, found.Len())
}
