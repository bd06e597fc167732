package hxview

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
	"github.com/sirupsen/logrus"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Use this for non-component pages or when manually
// rendering component output.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hxview.Render(w, r, myTemplate())
//	}
//
// Application.ServeHTTP does this itself; use Render for pages outside
// the application.
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX reports whether the request was sent by htmx (HX-Request: true).
// ServeHTTP answers such requests with the root fragment.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsBoosted reports whether the request comes from an hx-boost link or
// form. Boosted requests still receive the full page.
func IsBoosted(r *http.Request) bool {
	return r.Header.Get("HX-Boosted") == "true"
}

// CurrentURL returns the browser's location at the time of the request,
// from HX-Current-URL. Empty for plain requests.
func CurrentURL(r *http.Request) string {
	return r.Header.Get("HX-Current-URL")
}

// TriggerID returns the id of the element that triggered the request.
func TriggerID(r *http.Request) string {
	return r.Header.Get("HX-Trigger")
}

// TriggerName returns the name of the element that triggered the request.
func TriggerName(r *http.Request) string {
	return r.Header.Get("HX-Trigger-Name")
}

// TargetID returns the id of the element the client meant to swap into.
// ServeHTTP retargets fragments to the root regardless.
func TargetID(r *http.Request) string {
	return r.Header.Get("HX-Target")
}

// requestFields describes a request for the log. HTMX headers are only
// included when present.
func requestFields(r *http.Request) logrus.Fields {
	fields := logrus.Fields{"path": r.URL.EscapedPath()}
	if !IsHTMX(r) {
		return fields
	}
	fields["htmx"] = true
	if IsBoosted(r) {
		fields["boosted"] = true
	}
	for key, value := range map[string]string{
		"current_url":  CurrentURL(r),
		"trigger":      TriggerID(r),
		"trigger_name": TriggerName(r),
		"target":       TargetID(r),
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

// NavigateEvent is the HX-Trigger event sent with every HTMX navigation
// response.
const NavigateEvent = "hxview:navigate"

// NavigateTrigger builds the HX-Trigger header value announcing nav:
//
//	{"hxview:navigate": {"view": "UserView", "params": ["42"], "fragment": "users/42"}}
//
// HTMX fires the event with evt.detail set to the inner object, so client
// code can react to page changes. Returns "" for an empty navigation.
func NavigateTrigger(nav Navigation) string {
	if nav.Name == "" {
		return ""
	}
	params := nav.Params
	if params == nil {
		params = []string{}
	}
	data, err := json.Marshal(map[string]any{
		NavigateEvent: map[string]any{
			"view":     nav.Name,
			"params":   params,
			"fragment": nav.Fragment,
		},
	})
	if err != nil {
		return ""
	}
	return string(data)
}
