package hxview

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pthm/hxview/lib/dom"
	"github.com/pthm/hxview/lib/events"
	"github.com/pthm/hxview/lib/model"
)

// RegionAttr is the attribute that marks an element as a named region.
const RegionAttr = "data-region"

var regionMatcher = dom.MustCompile("[" + RegionAttr + "]")

// Options configures a View.
type Options struct {
	// Name identifies the view in logs and errors. Defaults to the owner's
	// type name.
	Name string

	// El is the root element. When nil a detached element is created from
	// TagName, ID, ClassName and Attributes.
	El         *dom.Node
	TagName    string
	ID         string
	ClassName  string
	Attributes map[string]string

	// Data sources, in priority order: the first non-nil one is serialized
	// for the template.
	Model      model.Serializer
	Collection model.ListSerializer
	Data       Data

	Template        Template
	TemplateHelpers Data

	// UI maps names to CSS selectors resolved inside the view after every
	// render.
	UI map[string]string

	// Subviews maps names to factories. One instance per entry is built
	// when the view is constructed.
	Subviews map[string]Factory

	Logger logrus.FieldLogger
}

// uiBinding is one compiled entry of the UI declaration.
type uiBinding struct {
	name     string
	selector string
	matcher  dom.Matcher
}

// declarations is the immutable declarative half of a view. The live maps
// on View are always rebuilt from it.
type declarations struct {
	ui       []uiBinding
	subviews map[string]Factory
}

// View is the base type embedded by user views.
//
// A view renders a template into its root element, then binds two
// declarative hashes against the fresh markup: named regions (elements
// carrying data-region) and named UI elements (selector matches). Subviews
// declared at construction are owned by the view and removed with it.
//
//	type UserView struct {
//	    *hxview.View
//	    user *model.Model
//	}
//
//	func NewUserView() (*UserView, error) {
//	    v := &UserView{user: model.New(nil)}
//	    base, err := hxview.New(v, hxview.Options{
//	        Model:    v.user,
//	        Template: hxview.HTMLTemplate(userTmpl),
//	        UI:       map[string]string{"name": ".name"},
//	    })
//	    if err != nil {
//	        return nil, err
//	    }
//	    v.View = base
//	    return v, nil
//	}
//
// A View is not safe for concurrent use; the application serializes access.
type View struct {
	name  string
	owner Viewer
	el    *dom.Node

	model      model.Serializer
	collection model.ListSerializer
	data       Data
	template   Template
	helpers    Data

	decl declarations

	// Live bindings, rebuilt on every render.
	regions  map[string]*Region
	ui       map[string]dom.Selection
	subviews map[string]Viewer

	closed    bool
	listeners []func()
	log       logrus.FieldLogger
}

// New creates the base view for owner. owner is the concrete type that
// embeds the returned *View; its optional interfaces (AfterRenderer,
// TemplateHelperProvider, OnRemover) are used as lifecycle hooks. A nil
// owner makes the view its own owner.
//
// Every UI selector is compiled and every declared subview is constructed
// here, so configuration mistakes fail at construction with a
// *BindingError.
func New(owner Viewer, opts Options) (*View, error) {
	v := &View{
		name:       opts.Name,
		owner:      owner,
		el:         opts.El,
		model:      opts.Model,
		collection: opts.Collection,
		data:       opts.Data,
		template:   opts.Template,
		helpers:    opts.TemplateHelpers,
	}
	if v.owner == nil {
		v.owner = v
	}
	// A typed nil source counts as absent so the next source is used.
	if isNil(v.model) {
		v.model = nil
	}
	if isNil(v.collection) {
		v.collection = nil
	}
	if v.name == "" {
		v.name = viewName(v.owner)
	}

	base := opts.Logger
	if base == nil {
		base = DefaultLogger()
	}
	v.log = base.WithField("view", v.name)

	if v.el == nil {
		v.el = dom.NewElement(opts.TagName, elementAttrs(opts))
	}

	if err := v.compileUI(opts.UI); err != nil {
		return nil, err
	}
	if err := v.bindSubviews(opts.Subviews); err != nil {
		return nil, err
	}
	return v, nil
}

// viewName derives a readable name from the owner's type.
func viewName(owner Viewer) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", owner), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func elementAttrs(opts Options) map[string]string {
	attrs := make(map[string]string, len(opts.Attributes)+2)
	for k, val := range opts.Attributes {
		attrs[k] = val
	}
	if opts.ID != "" {
		attrs["id"] = opts.ID
	}
	if opts.ClassName != "" {
		attrs["class"] = opts.ClassName
	}
	return attrs
}

// Base returns the view itself. It satisfies Viewer for embedding types.
func (v *View) Base() *View {
	return v
}

// Name returns the view's name.
func (v *View) Name() string {
	return v.name
}

// Owner returns the concrete view that embeds this one.
func (v *View) Owner() Viewer {
	return v.owner
}

// El returns the root element.
func (v *View) El() *dom.Node {
	return v.el
}

// SetElement repoints the view's root element. Regions and the application
// use this to place a view inside existing markup.
func (v *View) SetElement(el *dom.Node) {
	if el == nil {
		return
	}
	v.el = el
}

// HTML renders the root element including its own tag.
func (v *View) HTML() string {
	return dom.OuterHTML(v.el)
}

// Closed reports whether the view has been removed since its last render.
func (v *View) Closed() bool {
	return v.closed
}

// Logger returns the view's logger.
func (v *View) Logger() logrus.FieldLogger {
	return v.log
}

// Render serializes the bound data, runs the template, replaces the root
// element's content with the result, rebinds regions and UI elements, and
// finally calls AfterRender when the owner implements it.
//
// Render clears the closed flag, so a removed view can be rendered again.
func (v *View) Render(ctx context.Context) (*View, error) {
	v.closed = false

	if v.template == nil {
		return nil, fmt.Errorf("%w: %s has no template", ErrTemplate, v.name)
	}

	data := v.serializeData()
	markup, err := renderMarkup(ctx, v.template, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, v.name, err)
	}
	if err := dom.SetInnerHTML(v.el, markup); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, v.name, err)
	}

	v.bindRegions()
	if err := v.bindUIElements(); err != nil {
		return nil, err
	}

	if ar, ok := v.owner.(AfterRenderer); ok {
		if err := ar.AfterRender(ctx); err != nil {
			return nil, fmt.Errorf("hxview: %s after render: %w", v.name, err)
		}
	}

	v.log.WithField("regions", len(v.regions)).Debug("rendered")
	return v, nil
}

// serializeData picks the first available data source and mixes in the
// template helpers.
func (v *View) serializeData() Data {
	var data Data
	switch {
	case v.model != nil:
		data = Data(v.model.ToJSON())
	case v.collection != nil:
		data = Data{"items": v.collection.ToJSON()}
	case v.data != nil:
		data = v.data.clone()
	default:
		data = Data{}
	}
	return v.mixinTemplateHelpers(data)
}

// mixinTemplateHelpers adds helper entries to data. Keys already present
// in the serialized data win.
func (v *View) mixinTemplateHelpers(data Data) Data {
	helpers := v.helpers
	if p, ok := v.owner.(TemplateHelperProvider); ok {
		helpers = p.TemplateHelpers()
	}
	for k, val := range helpers {
		if _, exists := data[k]; !exists {
			data[k] = val
		}
	}
	return data
}

// bindRegions rebuilds the region map from the rendered markup. When the
// markup has no region markers the map stays unset and every lookup
// misses.
func (v *View) bindRegions() {
	found := dom.QueryAll(v.el, regionMatcher)
	if len(found) == 0 {
		v.regions = nil
		return
	}

	v.regions = make(map[string]*Region, len(found))
	for _, el := range found {
		key, _ := dom.Attr(el, RegionAttr)
		v.regions[key] = &Region{name: key, el: el}
		// A subview declared under the same key lives in this region.
		if sub, ok := v.subviews[key]; ok {
			sub.Base().SetElement(el)
		}
	}
}

func (v *View) unbindRegions() {
	v.regions = nil
}

// Region returns a live region by name.
func (v *View) Region(name string) (*Region, bool) {
	r, ok := v.regions[name]
	return r, ok
}

// Regions returns the names of the live regions, sorted.
func (v *View) Regions() []string {
	return sortedKeys(v.regions)
}

// ShowIn renders view into the named region.
func (v *View) ShowIn(ctx context.Context, region string, view Viewer) error {
	r, ok := v.regions[region]
	if !ok {
		return &BindingError{Kind: KindRegion, View: v.name, Key: region}
	}
	return r.Show(ctx, view)
}

// compileUI turns the UI hash into the immutable declaration.
func (v *View) compileUI(ui map[string]string) error {
	for _, name := range sortedKeys(ui) {
		selector := ui[name]
		m, err := dom.Compile(selector)
		if err != nil {
			return &BindingError{Kind: KindUI, View: v.name, Key: name, Err: err}
		}
		v.decl.ui = append(v.decl.ui, uiBinding{name: name, selector: selector, matcher: m})
	}
	return nil
}

// bindUIElements rebuilds the live UI map. A declared selector with no
// match inside the view fails the render.
func (v *View) bindUIElements() error {
	if len(v.decl.ui) == 0 {
		v.ui = nil
		return nil
	}

	live := make(map[string]dom.Selection, len(v.decl.ui))
	for _, b := range v.decl.ui {
		sel := dom.QueryAll(v.el, b.matcher)
		if sel.Len() == 0 {
			v.ui = nil
			return &BindingError{
				Kind: KindUI,
				View: v.name,
				Key:  b.name,
				Err:  fmt.Errorf("selector %q matched nothing", b.selector),
			}
		}
		live[b.name] = sel
	}
	v.ui = live
	return nil
}

func (v *View) unbindUIElements() {
	v.ui = nil
}

// UI returns the elements bound to name by the last render.
func (v *View) UI(name string) dom.Selection {
	return v.ui[name]
}

// UIDeclarations returns a copy of the declarative name → selector hash.
// It is unaffected by rendering and removal.
func (v *View) UIDeclarations() map[string]string {
	out := make(map[string]string, len(v.decl.ui))
	for _, b := range v.decl.ui {
		out[b.name] = b.selector
	}
	return out
}

// bindSubviews builds one subview per declared factory.
func (v *View) bindSubviews(factories map[string]Factory) error {
	if len(factories) == 0 {
		return nil
	}

	v.decl.subviews = make(map[string]Factory, len(factories))
	v.subviews = make(map[string]Viewer, len(factories))
	for _, name := range sortedKeys(factories) {
		f := factories[name]
		if f == nil {
			v.removeSubviews()
			return &BindingError{Kind: KindSubview, View: v.name, Key: name}
		}
		sub, err := f()
		if err == nil && noView(sub) {
			err = fmt.Errorf("factory returned no view")
		}
		if err != nil {
			v.removeSubviews()
			return &BindingError{Kind: KindSubview, View: v.name, Key: name, Err: err}
		}
		v.decl.subviews[name] = f
		v.subviews[name] = sub
	}
	return nil
}

// removeSubviews removes every subview and clears the map.
func (v *View) removeSubviews() {
	for _, name := range sortedKeys(v.subviews) {
		v.subviews[name].Base().Remove()
	}
	v.subviews = nil
}

// Subview returns a subview by name.
func (v *View) Subview(name string) (Viewer, bool) {
	sub, ok := v.subviews[name]
	return sub, ok
}

// Subviews returns the names of the live subviews, sorted.
func (v *View) Subviews() []string {
	return sortedKeys(v.subviews)
}

// Remove tears the view down: subviews, regions and UI bindings first,
// then the root element is detached from the DOM and every event binding
// made through ListenTo is released. Calling Remove again before the next
// Render does nothing.
func (v *View) Remove() {
	if v.closed {
		return
	}
	v.closed = true

	if h, ok := v.owner.(OnRemover); ok {
		h.OnRemove()
	}

	v.removeSubviews()
	v.unbindRegions()
	v.unbindUIElements()

	v.detach()
	v.log.Debug("removed")
}

// detach is the base removal primitive: DOM detach plus event unbinding.
func (v *View) detach() {
	dom.Detach(v.el)
	v.StopListening()
}

// StopListening releases every event binding made through ListenTo.
func (v *View) StopListening() {
	for _, unsubscribe := range v.listeners {
		unsubscribe()
	}
	v.listeners = nil
}

// ListenTo subscribes fn to bus for the lifetime of v. The subscription is
// released when v is removed.
func ListenTo[T any](v *View, bus *events.Bus[T], fn func(T)) {
	v.listeners = append(v.listeners, bus.Subscribe(fn))
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isNil reports whether x is nil or an interface holding a nil pointer,
// map, slice, func or chan.
func isNil(x any) bool {
	if x == nil {
		return true
	}
	switch rv := reflect.ValueOf(x); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// noView reports whether a factory result cannot be used as a view.
func noView(vw Viewer) bool {
	return isNil(vw) || vw.Base() == nil
}
