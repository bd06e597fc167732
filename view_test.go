package hxview

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxview/lib/dom"
	"github.com/pthm/hxview/lib/events"
	"github.com/pthm/hxview/lib/model"
)

func TestNew_DefaultElement(t *testing.T) {
	v, err := New(nil, Options{
		TagName:    "section",
		ID:         "user",
		ClassName:  "card",
		Attributes: map[string]string{"data-kind": "detail"},
		Logger:     DiscardLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, `<section class="card" data-kind="detail" id="user"></section>`, v.HTML())
	assert.Same(t, v, v.Owner().Base())
	assert.Equal(t, "View", v.Name())
}

func TestNew_NameFromOwner(t *testing.T) {
	v := mustUserView(t)
	assert.Equal(t, "userView", v.Name())
}

func TestNew_ExistingElement(t *testing.T) {
	el := dom.NewElement("ul", nil)
	v, err := New(nil, Options{El: el, Logger: DiscardLogger()})
	require.NoError(t, err)
	assert.Same(t, el, v.El())
}

func TestRender_ReturnsView(t *testing.T) {
	v := mustUserView(t)
	v.user.Set("name", "Ada").Set("id", "1")

	got, err := v.Render(context.Background())
	require.NoError(t, err)
	assert.Same(t, v.View, got)
	assert.Equal(t, `<h1 class="name">Ada</h1><p class="id">1</p>`, dom.InnerHTML(v.El()))
	assert.Equal(t, 1, v.afterRender)
}

func TestRender_DataPriority(t *testing.T) {
	tmpl := HTMLTemplate(mustParse(`{{with .items}}{{range .}}[{{.name}}]{{end}}{{else}}{{with .name}}{{.}}{{end}}{{end}}`))

	m := model.New(map[string]any{"name": "model"})
	c := model.NewCollection(model.New(map[string]any{"name": "a"}), model.New(map[string]any{"name": "b"}))
	d := Data{"name": "data"}

	tests := []struct {
		name   string
		opts   Options
		expect string
	}{
		{"model wins", Options{Model: m, Collection: c, Data: d}, "model"},
		{"collection before data", Options{Collection: c, Data: d}, "[a][b]"},
		{"data", Options{Data: d}, "data"},
		{"nil model falls through", Options{Model: (*model.Model)(nil), Data: d}, "data"},
		{"nil collection falls through", Options{Collection: (*model.Collection)(nil), Data: d}, "data"},
		{"nothing", Options{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Template = tmpl
			opts.Logger = DiscardLogger()
			v, err := New(nil, opts)
			require.NoError(t, err)

			_, err = v.Render(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expect, dom.InnerHTML(v.El()))
		})
	}
}

func TestRender_DoesNotMutateData(t *testing.T) {
	d := Data{"name": "data"}
	v, err := New(nil, Options{
		Data:            d,
		Template:        StaticTemplate(""),
		TemplateHelpers: Data{"extra": true},
		Logger:          DiscardLogger(),
	})
	require.NoError(t, err)

	_, err = v.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Data{"name": "data"}, d)
}

type helperView struct {
	*View
}

func (v *helperView) TemplateHelpers() Data {
	return Data{"greeting": "hello from " + v.Name(), "name": "ignored"}
}

func TestRender_TemplateHelpers(t *testing.T) {
	tmpl := HTMLTemplate(mustParse(`{{.greeting}}|{{.name}}`))

	t.Run("static hash fills missing keys", func(t *testing.T) {
		v, err := New(nil, Options{
			Name:            "static",
			Data:            Data{"name": "data"},
			TemplateHelpers: Data{"greeting": "hi", "name": "helper"},
			Template:        tmpl,
			Logger:          DiscardLogger(),
		})
		require.NoError(t, err)

		_, err = v.Render(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "hi|data", dom.InnerHTML(v.El()))
	})

	t.Run("provider runs with the view as receiver", func(t *testing.T) {
		hv := &helperView{}
		base, err := New(hv, Options{
			Name:            "helpers",
			Data:            Data{"name": "data"},
			TemplateHelpers: Data{"greeting": "static"},
			Template:        tmpl,
			Logger:          DiscardLogger(),
		})
		require.NoError(t, err)
		hv.View = base

		_, err = hv.Render(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "hello from helpers|data", dom.InnerHTML(hv.El()))
	})
}

func TestRender_NoTemplate(t *testing.T) {
	v, err := New(nil, Options{Logger: DiscardLogger()})
	require.NoError(t, err)

	_, err = v.Render(context.Background())
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))
}

func TestRender_TemplateFailure(t *testing.T) {
	cause := errors.New("boom")
	v, err := New(nil, Options{
		Template: func(Data) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				return cause
			})
		},
		Logger: DiscardLogger(),
	})
	require.NoError(t, err)

	_, err = v.Render(context.Background())
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))
	assert.ErrorIs(t, err, cause)
}

func TestRender_ClearsClosed(t *testing.T) {
	v := mustStaticView(t, `<p>x</p>`)
	v.Remove()
	require.True(t, v.Closed())

	_, err := v.Render(context.Background())
	require.NoError(t, err)
	assert.False(t, v.Closed())
}

func TestRegions_NoMarkers(t *testing.T) {
	v := mustStaticView(t, `<p>no regions</p>`)
	_, err := v.Render(context.Background())
	require.NoError(t, err)

	assert.Empty(t, v.Regions())
	_, ok := v.Region("main")
	assert.False(t, ok)

	err = v.ShowIn(context.Background(), "main", mustStaticView(t, "x"))
	require.Error(t, err)
	assert.True(t, IsMissingBinding(err))

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindRegion, be.Kind)
	assert.Equal(t, "main", be.Key)
}

func TestRegions_SubviewLivesInRegion(t *testing.T) {
	layout, err := newLayoutView()
	require.NoError(t, err)

	_, err = layout.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"header", "main"}, layout.Regions())

	header, ok := layout.Subview("header")
	require.True(t, ok)
	region, ok := layout.Region("header")
	require.True(t, ok)
	assert.Same(t, region.El(), header.Base().El())
	assert.Equal(t, `<header data-region="header"><nav>menu</nav></header><main data-region="main"></main>`,
		dom.InnerHTML(layout.El()))
}

func TestRegions_ShowIn(t *testing.T) {
	layout, err := newLayoutView()
	require.NoError(t, err)
	_, err = layout.Render(context.Background())
	require.NoError(t, err)

	user := mustUserView(t)
	require.NoError(t, user.LoadModel(context.Background(), "7"))
	require.NoError(t, layout.ShowIn(context.Background(), "main", user))

	region, _ := layout.Region("main")
	assert.Same(t, region.El(), user.El())
	assert.Contains(t, layout.HTML(), `<h1 class="name">User 7</h1>`)
}

func TestRegions_RebuiltOnRender(t *testing.T) {
	markup := `<div data-region="a"></div>`
	v, err := New(nil, Options{
		Template: func(Data) templ.Component { return StaticTemplate(markup)(nil) },
		Logger:   DiscardLogger(),
	})
	require.NoError(t, err)

	_, err = v.Render(context.Background())
	require.NoError(t, err)
	first, ok := v.Region("a")
	require.True(t, ok)

	markup = `<div data-region="b"></div>`
	_, err = v.Render(context.Background())
	require.NoError(t, err)

	_, ok = v.Region("a")
	assert.False(t, ok)
	second, ok := v.Region("b")
	require.True(t, ok)
	assert.NotSame(t, first.El(), second.El())
}

func TestUI_Bound(t *testing.T) {
	v := mustUserView(t)
	require.NoError(t, v.LoadModel(context.Background(), "3"))

	_, err := v.Render(context.Background())
	require.NoError(t, err)
	first := v.UI("name").First()
	require.NotNil(t, first)
	assert.Equal(t, "User 3", dom.Text(first))

	_, err = v.Render(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, v.UI("name").First())
}

func TestUI_NoMatch(t *testing.T) {
	v, err := New(nil, Options{
		Name:     "list",
		Template: StaticTemplate(`<p></p>`),
		UI:       map[string]string{"items": "ul > li"},
		Logger:   DiscardLogger(),
	})
	require.NoError(t, err)

	_, err = v.Render(context.Background())
	require.Error(t, err)

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindUI, be.Kind)
	assert.Equal(t, "items", be.Key)
	assert.Nil(t, v.UI("items"))
}

func TestUI_InvalidSelector(t *testing.T) {
	_, err := New(nil, Options{
		UI:     map[string]string{"broken": "[data-x"},
		Logger: DiscardLogger(),
	})
	require.Error(t, err)
	assert.True(t, IsMissingBinding(err))
	assert.ErrorIs(t, err, dom.ErrInvalidSelector)
}

func TestUI_DeclarationsSurviveRemove(t *testing.T) {
	v := mustUserView(t)
	_, err := v.Render(context.Background())
	require.NoError(t, err)

	v.Remove()
	assert.Nil(t, v.UI("name"))
	assert.Equal(t, map[string]string{"name": ".name"}, v.UIDeclarations())

	_, err = v.Render(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, v.UI("name").First())
}

func TestSubviews_Errors(t *testing.T) {
	var built []*staticView
	tracking := func() (Viewer, error) {
		v, err := newStaticView("ok")
		built = append(built, v)
		return v, err
	}
	cause := errors.New("no such view")

	tests := []struct {
		name      string
		factories map[string]Factory
		cause     error
	}{
		{"nil factory", map[string]Factory{"a": tracking, "b": nil}, nil},
		{"factory error", map[string]Factory{"a": tracking, "b": func() (Viewer, error) { return nil, cause }}, cause},
		{"nil view", map[string]Factory{"a": tracking, "b": func() (Viewer, error) { return nil, nil }}, nil},
		{"typed nil view", map[string]Factory{"a": tracking, "b": func() (Viewer, error) { return (*staticView)(nil), nil }}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built = nil
			_, err := New(nil, Options{Subviews: tt.factories, Logger: DiscardLogger()})
			require.Error(t, err)

			var be *BindingError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, KindSubview, be.Kind)
			assert.Equal(t, "b", be.Key)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}

			require.Len(t, built, 1)
			assert.Equal(t, 1, built[0].removed)
		})
	}
}

func TestRemove(t *testing.T) {
	layout, err := newLayoutView()
	require.NoError(t, err)
	_, err = layout.Render(context.Background())
	require.NoError(t, err)

	parent := dom.NewElement("body", nil)
	dom.Append(parent, layout.El())

	bus := events.NewBus[string]()
	var got []string
	ListenTo(layout.View, bus, func(s string) { got = append(got, s) })
	bus.Publish("before")

	header, _ := layout.Subview("header")
	layout.Remove()

	assert.True(t, layout.Closed())
	assert.Nil(t, layout.El().Parent)
	assert.Empty(t, layout.Regions())
	assert.Empty(t, layout.Subviews())
	assert.True(t, header.Base().Closed())
	assert.Equal(t, 1, header.(*staticView).removed)

	bus.Publish("after")
	assert.Equal(t, []string{"before"}, got)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestRemove_Idempotent(t *testing.T) {
	v := mustUserView(t)
	_, err := v.Render(context.Background())
	require.NoError(t, err)

	v.Remove()
	v.Remove()
	assert.Equal(t, 1, v.removed)

	_, err = v.Render(context.Background())
	require.NoError(t, err)
	v.Remove()
	assert.Equal(t, 2, v.removed)
}

func TestSetElement_IgnoresNil(t *testing.T) {
	v := mustStaticView(t, "x")
	el := v.El()
	v.SetElement(nil)
	assert.Same(t, el, v.El())
}
