// internal/browser/page.go
package browser

import "context"

// Scope is anything elements can be queried from: the document or an element.
type Scope interface {
	// QueryAll returns every element matching a CSS selector without waiting.
	// No match is an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Page is a single browser tab. Steps borrow it from the lifecycle hooks and
// never own it.
type Page interface {
	Scope

	// BaseURL is the origin of the application under test.
	BaseURL() string
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)
	// Evaluate runs a JavaScript expression in the page and decodes its
	// result into res. res may be nil.
	Evaluate(ctx context.Context, expression string, res any) error
	ClearCookies(ctx context.Context) error
	// AcceptDialog waits for a native alert/confirm/prompt and accepts it.
	AcceptDialog(ctx context.Context) error
}

// Element is a handle to a DOM node. Handles may go stale when the
// application re-renders; callers re-query rather than cache them.
type Element interface {
	Scope

	// Text is the rendered text (innerText) of the element.
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Clickable reports whether the element is rendered, visible and enabled.
	Clickable(ctx context.Context) (bool, error)

	// Click dispatches a real mouse click at the element's center.
	Click(ctx context.Context) error
	// JSClick invokes HTMLElement.click() directly.
	JSClick(ctx context.Context) error
	// ClickNoWait schedules a click and returns before its handlers run. Use
	// it when the click opens a native dialog that would otherwise block.
	ClickNoWait(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error

	// SendKeys focuses the element and types text as key events.
	SendKeys(ctx context.Context, text string) error
	// Clear empties an input and notifies framework listeners.
	Clear(ctx context.Context) error
	// SetValue assigns an input's value directly and notifies framework
	// listeners. Used for date and time inputs that ignore key events.
	SetValue(ctx context.Context, value string) error
	// Select chooses this <option> in its parent <select>.
	Select(ctx context.Context) error
	// SetFiles injects local file paths into a file input.
	SetFiles(ctx context.Context, paths []string) error
	// Property evaluates a JavaScript expression with the element bound to
	// `this` and decodes the result into res.
	Property(ctx context.Context, expression string, res any) error
}
