package hxview

import (
	"bytes"
	"context"
	"errors"
	htmltemplate "html/template"
	"io"

	"github.com/a-h/templ"
)

// Data is the value handed to a template: the serialized model, collection
// or caller data merged with template helpers.
type Data map[string]any

// clone returns a shallow copy of d.
func (d Data) clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Template produces the markup for a view from its render data.
//
// Any templ component works:
//
//	Template: func(d hxview.Data) templ.Component {
//	    return userTemplate(d["name"].(string))
//	}
//
// Use HTMLTemplate to render with html/template instead.
type Template func(data Data) templ.Component

// HTMLTemplate adapts an html/template to a Template. The template is
// executed with the render data as its dot value.
//
//	var userTmpl = template.Must(template.New("user").Parse(`<h1>{{.name}}</h1>`))
//	opts.Template = hxview.HTMLTemplate(userTmpl)
func HTMLTemplate(t *htmltemplate.Template) Template {
	return func(data Data) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			return t.Execute(w, map[string]any(data))
		})
	}
}

// StaticTemplate returns a Template that always produces markup verbatim.
func StaticTemplate(markup string) Template {
	return func(Data) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, markup)
			return err
		})
	}
}

// renderMarkup executes a template into a string.
func renderMarkup(ctx context.Context, tmpl Template, data Data) (string, error) {
	component := tmpl(data)
	if component == nil {
		return "", errors.New("template returned no component")
	}
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DefaultLayout is the page used by an Application without a Layout.
func DefaultLayout() templ.Component {
	return StaticTemplate(`<!DOCTYPE html><html><head><meta charset="utf-8"></head><body></body></html>`)(nil)
}
