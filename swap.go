package hxview

// SwapMode defines HTMX swap strategies for how response HTML replaces the target.
//
// Each mode corresponds to an HTMX hx-swap value. Fragment responses from
// Application.ServeHTTP carry the root element's content and are swapped
// with SwapInner unless AppOptions.Swap says otherwise.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapInner replaces only the element's contents, preserving the outer tag (innerHTML).
	// This is the default for fragment responses.
	SwapInner SwapMode = "innerHTML"

	// SwapMorph is innerHTML with view transitions enabled, animating the
	// change between the outgoing and incoming view.
	SwapMorph SwapMode = "innerHTML transition:true"

	// SwapNone performs no swap - response is discarded.
	// Useful when the client only listens for the navigate event.
	SwapNone SwapMode = "none"
)
