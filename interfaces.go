package hxview

import (
	"context"
)

// Viewer is implemented by every view. Concrete views embed *View, which
// promotes Base and the rest of the lifecycle onto the user's type.
type Viewer interface {
	Base() *View
}

// Factory constructs a view. Registries, routers and subview declarations
// all hold factories rather than instances.
type Factory func() (Viewer, error)

// AfterRenderer is implemented by views that need to run code once their
// markup, regions and UI elements are in place. Called at the end of every
// successful Render.
//
//	func (v *UserView) AfterRender(ctx context.Context) error {
//	    return v.ShowIn(ctx, "details", v.details)
//	}
type AfterRenderer interface {
	AfterRender(ctx context.Context) error
}

// ModelLoader is implemented by views that fetch their own model from the
// parameters captured by a route. The router calls LoadModel after
// construction and before the view is handed to the application.
//
//	func (v *UserView) LoadModel(ctx context.Context, params ...string) error {
//	    user, err := v.store.Get(ctx, params[0])
//	    ...
//	}
type ModelLoader interface {
	LoadModel(ctx context.Context, params ...string) error
}

// TemplateHelperProvider is the function form of Options.TemplateHelpers.
// It is called with the view as receiver on every render and takes
// precedence over the static hash.
type TemplateHelperProvider interface {
	TemplateHelpers() Data
}

// OnRemover is implemented by views with their own cleanup. OnRemove runs
// once, at the start of the first Remove call, before subviews and
// bindings are torn down.
type OnRemover interface {
	OnRemove()
}

// Loader resolves a view module path to a factory. Registry is the
// standard implementation.
type Loader interface {
	Load(ctx context.Context, path string) (Factory, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Factory, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string) (Factory, error) {
	return f(ctx, path)
}
