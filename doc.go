// Package hxview provides view composition, route dispatch and an
// application shell for server-rendered pages built with Go, Templ
// templates and HTMX.
//
// Views render into a server-side DOM (package lib/dom). After each render
// a view binds named regions and named UI elements against its fresh
// markup, and owns the subviews it declared at construction. A Router
// turns URL fragments into freshly constructed views, and an Application
// swaps them in as the single current view of a page.
//
// # Core Concepts
//
// Views embed *View and pass themselves as owner to New, which lets the
// base type find optional lifecycle hooks on the concrete type:
//
//	type UserView struct {
//	    *hxview.View
//	    user *model.Model
//	}
//
// Optional interfaces:
//   - AfterRenderer: AfterRender(ctx) runs after regions and UI are bound
//   - ModelLoader: LoadModel(ctx, params...) is called by the router
//   - TemplateHelperProvider: TemplateHelpers() adds data for the template
//   - OnRemover: OnRemove() runs once when the view is removed
//
// # Render Data
//
// Render serializes the first bound data source (model, collection, then
// plain Data), fills in template helpers for keys the data lacks, and runs
// the Template. Collections are exposed to templates under "items".
//
// # Regions, UI and Subviews
//
// Any element carrying data-region="name" becomes a region:
//
//	<main data-region="content"></main>
//
//	v.ShowIn(ctx, "content", detail)
//
// A subview declared under the same name as a region lives in that region.
// UI selectors are compiled at construction and resolved on every render;
// a selector with no match fails the render with a *BindingError.
//
// # Routing
//
// Routes map URL patterns to registered view names:
//
//	router, _ := hxview.NewRouter(hxview.RouterOptions{
//	    Routes: []hxview.Route{
//	        {URL: "", View: "HomeView"},
//	        {URL: "users/:id", View: "UserView"},
//	    },
//	    Loader: registry,
//	})
//
// Navigations load views asynchronously. When navigations overlap the last
// one wins; earlier ones resolve with ErrSuperseded.
//
// # Application
//
// An Application listens to its router and shows every navigated view in
// its root element. It is also an http.Handler: HTMX requests receive the
// root fragment, everything else receives the whole page.
//
//	app, _ := hxview.NewApplication(hxview.AppOptions{Router: router})
//	http.ListenAndServe(":8080", app)
//
// Use lib/session to give each browser its own Application.
package hxview
