package hxview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/pthm/hxview/lib/dom"
)

// TestResult holds the result of rendering a view or serving a request
// for testing.
//
// Provides convenience methods for asserting on HTML content, headers,
// status codes and triggered events.
type TestResult struct {
	HTML            string
	StatusCode      int
	Headers         http.Header
	TriggeredEvents []string

	// View is the rendered or navigated view, when there is one.
	View Viewer
}

// TestRender renders a view and returns testable output.
//
// Use this for pure unit tests of rendering logic. The view is rendered
// into its own element and the element's outer HTML is returned:
//
//	v, _ := NewUserView()
//	result, err := hxview.TestRender(v)
//	if !result.HTMLContains("expected text") {
//	    t.Fatal("missing expected content")
//	}
func TestRender(view Viewer) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), view)
}

// TestRenderWithContext renders a view with a custom context.
//
// Use this when testing views whose templates read values from context.
func TestRenderWithContext(ctx context.Context, view Viewer) (*TestResult, error) {
	base, err := view.Base().Render(ctx)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       base.HTML(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		View:       view,
	}, nil
}

// TestNavigate drives app's router to fragment, waits for the navigation
// to be shown, and returns the root element's content.
//
//	result, err := hxview.TestNavigate(app, "users/42")
func TestNavigate(app *Application, fragment string) (*TestResult, error) {
	ctx := context.Background()
	if app.Router() == nil {
		return nil, fmt.Errorf("hxview: application has no router")
	}

	pending, err := app.Router().Navigate(ctx, fragment)
	if err != nil {
		return nil, err
	}
	nav, err := pending.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.shownError(nav); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := app.WriteFragment(ctx, &sb); err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       sb.String(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		View:       nav.View,
	}, nil
}

// TestGet simulates a GET request against h.
//
//	result, err := hxview.TestGet(app, "/users/42")
func TestGet(h http.Handler, url string) (*TestResult, error) {
	return NewTestRequest(http.MethodGet, url).Execute(h)
}

// TestGetHTMX simulates an HTMX (non-boosted) GET request against h.
func TestGetHTMX(h http.Handler, url string) (*TestResult, error) {
	return NewTestRequest(http.MethodGet, url).WithHTMX().Execute(h)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLContainsAny checks if the HTML contains any of the given substrings.
func (r *TestResult) HTMLContainsAny(substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(r.HTML, s) {
			return true
		}
	}
	return false
}

// Find parses the HTML and returns the elements matching selector.
func (r *TestResult) Find(selector string) (dom.Selection, error) {
	doc, err := dom.Parse(r.HTML)
	if err != nil {
		return nil, err
	}
	return doc.FindAll(selector)
}

// HasEvent checks if an event was triggered.
func (r *TestResult) HasEvent(event string) bool {
	for _, e := range r.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// parseTriggerHeader parses the HX-Trigger header value into event names.
// The header can be a simple event name or JSON.
func parseTriggerHeader(trigger string) []string {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return nil
	}

	// If it starts with '{', it's JSON - parse event names from top-level keys
	if strings.HasPrefix(trigger, "{") {
		var events []string
		depth := 0
		inString := false
		stringStart := -1

		for i := 0; i < len(trigger); i++ {
			c := trigger[i]

			if inString && c == '\\' && i+1 < len(trigger) {
				i++
				continue
			}

			if c == '"' {
				if !inString {
					inString = true
					stringStart = i + 1
					continue
				}
				inString = false
				if depth == 1 {
					j := i + 1
					for j < len(trigger) && (trigger[j] == ' ' || trigger[j] == '\t') {
						j++
					}
					if j < len(trigger) && trigger[j] == ':' {
						events = append(events, trigger[stringStart:i])
					}
				}
				stringStart = -1
			} else if !inString {
				switch c {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
		}
		return events
	}

	parts := strings.Split(trigger, ",")
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			events = append(events, p)
		}
	}
	return events
}

// TestRequestBuilder provides a fluent interface for building test requests.
//
//	result, err := hxview.NewTestRequest("GET", "/users/42").
//	    WithHTMX().
//	    WithHeader("X-Custom", "header").
//	    Execute(app)
type TestRequestBuilder struct {
	method  string
	url     string
	headers map[string]string
	ctx     context.Context
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:  method,
		url:     url,
		headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithHTMX marks the request as coming from HTMX.
func (b *TestRequestBuilder) WithHTMX() *TestRequestBuilder {
	return b.WithHeader("HX-Request", "true")
}

// WithBoost marks the request as a boosted HTMX navigation.
func (b *TestRequestBuilder) WithBoost() *TestRequestBuilder {
	return b.WithHTMX().WithHeader("HX-Boosted", "true")
}

// WithContext sets the request context.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Execute serves the request with h and collects the response.
func (b *TestRequestBuilder) Execute(h http.Handler) (*TestResult, error) {
	if h == nil {
		return nil, fmt.Errorf("hxview: nil handler")
	}
	req := httptest.NewRequest(b.method, b.url, nil).WithContext(b.ctx)
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return &TestResult{
		HTML:            rec.Body.String(),
		StatusCode:      rec.Code,
		Headers:         rec.Header(),
		TriggeredEvents: parseTriggerHeader(rec.Header().Get("HX-Trigger")),
	}, nil
}
