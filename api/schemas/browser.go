package schemas

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// -- Locator Schemas --

// LocatorKind names the query strategy used to resolve a Locator.
type LocatorKind string

const (
	LocatorID    LocatorKind = "id"
	LocatorCSS   LocatorKind = "css"
	LocatorXPath LocatorKind = "xpath"
	LocatorName  LocatorKind = "name"
	// LocatorText matches an element whose own normalized text contains Value.
	LocatorText LocatorKind = "text"
)

// Locator is a single way of finding an element on the page.
type Locator struct {
	Kind  LocatorKind `json:"kind" yaml:"kind"`
	Value string      `json:"value" yaml:"value"`
}

func ByID(id string) Locator      { return Locator{Kind: LocatorID, Value: id} }
func ByCSS(sel string) Locator    { return Locator{Kind: LocatorCSS, Value: sel} }
func ByXPath(expr string) Locator { return Locator{Kind: LocatorXPath, Value: expr} }
func ByName(name string) Locator  { return Locator{Kind: LocatorName, Value: name} }
func ByText(text string) Locator  { return Locator{Kind: LocatorText, Value: text} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Kind, l.Value)
}

// XPathLiteral quotes s for use inside an XPath expression, handling strings
// that contain both quote characters.
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// -- Element and Context Schemas --

// Element is a resolved handle to a node in the active browsing context.
// ID is assigned by the driver and is only meaningful to it.
type Element struct {
	Locator Locator `json:"locator"`
	ID      int64   `json:"id"`
}

// ContextHandle identifies where the driver is currently pointed: a window
// and a path of frames inside it (outermost first).
type ContextHandle struct {
	Window string    `json:"window"`
	Frames []Locator `json:"frames,omitempty"`
}

// Equal reports whether both handles point at the same window and frame path.
func (h ContextHandle) Equal(o ContextHandle) bool {
	if h.Window != o.Window || len(h.Frames) != len(o.Frames) {
		return false
	}
	for i := range h.Frames {
		if h.Frames[i] != o.Frames[i] {
			return false
		}
	}
	return true
}

// -- Driver Contract --

// Driver is the browser automation surface the wizard and mailbox packages
// depend on. Implementations are not required to be safe for concurrent use.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error

	// Find waits up to timeout for an element matching loc to be present and
	// visible in the active context.
	Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	// FindAll returns every current match without waiting and without a
	// visibility requirement.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)

	Click(ctx context.Context, el Element) error
	Clear(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error
	Value(ctx context.Context, el Element) (string, error)
	// SetValue assigns the element's value directly, bypassing key events,
	// and dispatches input and change events.
	SetValue(ctx context.Context, el Element, value string) error
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
	Text(ctx context.Context, el Element) (string, error)
	IsEnabled(ctx context.Context, el Element) (bool, error)
	IsSelected(ctx context.Context, el Element) (bool, error)
	ScrollIntoView(ctx context.Context, el Element) error
	SetFiles(ctx context.Context, el Element, paths []string) error
	// CallOn runs a JavaScript function with `this` bound to el.
	CallOn(ctx context.Context, el Element, fn string, res interface{}, args ...interface{}) error
	Evaluate(ctx context.Context, script string, res interface{}) error
	PageSource(ctx context.Context) (string, error)

	CurrentContext() ContextHandle
	OpenWindow(ctx context.Context, url string) (string, error)
	SwitchWindow(ctx context.Context, handle string) error
	CloseWindow(ctx context.Context, handle string) error
	// SwitchFrame descends into the frame matched by loc.
	SwitchFrame(ctx context.Context, loc Locator) error
	RestoreContext(ctx context.Context, h ContextHandle) error

	Close(ctx context.Context) error
}
