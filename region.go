package hxview

import (
	"context"

	"github.com/pthm/hxview/lib/dom"
)

// Region is a named slot inside a rendered view, discovered from an
// element carrying data-region="name". Regions are rebuilt on every
// render of their parent, so hold on to the name rather than the Region.
type Region struct {
	name string
	el   *dom.Node
}

// Name returns the region's name.
func (r *Region) Name() string {
	return r.name
}

// El returns the region's element.
func (r *Region) El() *dom.Node {
	return r.el
}

// Show points view at the region's element and renders it there.
func (r *Region) Show(ctx context.Context, view Viewer) error {
	base := view.Base()
	base.SetElement(r.el)
	_, err := base.Render(ctx)
	return err
}
