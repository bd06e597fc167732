package hxview

import (
	"context"
	"errors"
	htmltemplate "html/template"
	"sync"
	"testing"

	"github.com/pthm/hxview/lib/model"
)

var userTmpl = htmltemplate.Must(htmltemplate.New("user").Parse(
	`<h1 class="name">{{.name}}</h1><p class="id">{{.id}}</p>`,
))

func mustParse(text string) *htmltemplate.Template {
	return htmltemplate.Must(htmltemplate.New("test").Parse(text))
}

// userView is a detail view that loads its model from route params.
type userView struct {
	*View
	user *model.Model

	mu          sync.Mutex
	loadedWith  []string
	loadErr     error
	afterRender int
	removed     int
}

func newUserView() (*userView, error) {
	v := &userView{user: model.New(map[string]any{"id": "", "name": ""})}
	base, err := New(v, Options{
		Model:    v.user,
		Template: HTMLTemplate(userTmpl),
		UI:       map[string]string{"name": ".name"},
		Logger:   DiscardLogger(),
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}

func (v *userView) LoadModel(ctx context.Context, params ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loadedWith = params
	if v.loadErr != nil {
		return v.loadErr
	}
	if len(params) == 0 {
		return errors.New("missing id")
	}
	v.user.Set("id", params[0]).Set("name", "User "+params[0])
	return nil
}

func (v *userView) AfterRender(ctx context.Context) error {
	v.afterRender++
	return nil
}

func (v *userView) OnRemove() {
	v.removed++
}

// staticView renders fixed markup.
type staticView struct {
	*View
	removed int
}

func newStaticView(markup string) (*staticView, error) {
	v := &staticView{}
	base, err := New(v, Options{
		Template: StaticTemplate(markup),
		Logger:   DiscardLogger(),
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}

func (v *staticView) OnRemove() {
	v.removed++
}

func staticFactory(markup string) Factory {
	return func() (Viewer, error) {
		return newStaticView(markup)
	}
}

// layoutView declares two regions and a header subview living in one of
// them.
type layoutView struct {
	*View
}

func newLayoutView() (*layoutView, error) {
	v := &layoutView{}
	base, err := New(v, Options{
		Template: StaticTemplate(`<header data-region="header"></header><main data-region="main"></main>`),
		Subviews: map[string]Factory{
			"header": staticFactory(`<nav>menu</nav>`),
		},
		Logger: DiscardLogger(),
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}

func (v *layoutView) AfterRender(ctx context.Context) error {
	header, _ := v.Subview("header")
	_, err := header.Base().Render(ctx)
	return err
}

func mustUserView(t *testing.T) *userView {
	t.Helper()
	v, err := newUserView()
	if err != nil {
		t.Fatalf("newUserView() error = %v", err)
	}
	return v
}

func mustStaticView(t *testing.T, markup string) *staticView {
	t.Helper()
	v, err := newStaticView(markup)
	if err != nil {
		t.Fatalf("newStaticView() error = %v", err)
	}
	return v
}

// testRegistry registers the fixture views.
func testRegistry() *Registry {
	reg := NewRegistry()
	Register(reg, "UserView", newUserView)
	Register(reg, "LayoutView", newLayoutView)
	reg.Add("HomeView", staticFactory(`<p class="home">home</p>`))
	return reg
}
