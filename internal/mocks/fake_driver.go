package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// MainWindow is the handle of the FakeDriver's initial window.
const MainWindow = "main"

// FakeElement is an in-memory stand-in for a DOM node.
type FakeElement struct {
	ID int64
	// Window and Frame scope the element. Frame is the ">"-joined string form
	// of the frame locator path, empty for the top document.
	Window  string
	Frame   string
	Matches []schemas.Locator

	Value    string
	Text     string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Selected bool
	Files    []string

	// IgnoreTyping makes key events have no effect, like a masked input that
	// rejects synthetic keystrokes.
	IgnoreTyping bool
	// RejectInjection makes SetValue a no-op.
	RejectInjection bool
	// Accept, when set, vetoes any typed or injected value it returns false for.
	Accept func(value string) bool
	// Detached elements are not in the document: no query matches them.
	Detached bool
	// ToggleOnClick flips Selected on every click.
	ToggleOnClick bool

	// OnClick runs after a click is recorded, outside the driver lock.
	OnClick func(d *FakeDriver, el *FakeElement)

	Clicks int
}

func (e *FakeElement) matches(loc schemas.Locator) bool {
	if e.Detached {
		return false
	}
	for _, m := range e.Matches {
		if m == loc {
			return true
		}
	}
	return false
}

func (e *FakeElement) accepts(v string) bool {
	return e.Accept == nil || e.Accept(v)
}

// FakeDriver implements schemas.Driver over FakeElements. Find never waits:
// it matches visible elements in the active window and frame immediately.
type FakeDriver struct {
	mu       sync.Mutex
	elements []*FakeElement
	nextID   int64
	windows  map[string]string
	active   string
	frames   []schemas.Locator
	calls    []string
	closed   bool
	winSeq   int

	URL    string
	Source string

	// OnNavigate, OnReload and OnOpenWindow let tests model page changes.
	OnNavigate   func(d *FakeDriver, url string) error
	OnReload     func(d *FakeDriver) error
	OnOpenWindow func(d *FakeDriver, handle, url string) error
	// OnCallOn handles CallOn. The default copies a single string argument
	// into Value and the data-value attribute.
	OnCallOn func(d *FakeDriver, el *FakeElement, fn string, res interface{}, args []interface{}) error
	// OnEvaluate handles Evaluate. The default does nothing.
	OnEvaluate func(d *FakeDriver, script string, res interface{}) error
	// FindHook, when set, runs before every Find and may return an error to
	// simulate a lookup failure.
	FindHook func(loc schemas.Locator) error
}

var _ schemas.Driver = (*FakeDriver)(nil)

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		windows: map[string]string{MainWindow: "about:blank"},
		active:  MainWindow,
	}
}

// Add registers el in the active window and frame unless el sets its own
// scope. It returns el for chaining.
func (d *FakeDriver) Add(el *FakeElement) *FakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	el.ID = d.nextID
	if el.Window == "" {
		el.Window = d.active
	}
	if el.Attrs == nil {
		el.Attrs = map[string]string{}
	}
	d.elements = append(d.elements, el)
	return el
}

// Mutate runs fn while holding the driver lock, for tests that change
// element state from hooks.
func (d *FakeDriver) Mutate(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Element returns the registered element by ID.
func (d *FakeDriver) Element(id int64) *FakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID(id)
}

func (d *FakeDriver) byID(id int64) *FakeElement {
	for _, e := range d.elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Lookup returns the first element, in any scope, matching loc.
func (d *FakeDriver) Lookup(loc schemas.Locator) *FakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.elements {
		if e.matches(loc) {
			return e
		}
	}
	return nil
}

// SetHidden shows or hides every element matching any of locs.
func (d *FakeDriver) SetHidden(hidden bool, locs ...schemas.Locator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.elements {
		for _, loc := range locs {
			if e.matches(loc) {
				e.Hidden = hidden
			}
		}
	}
}

// Calls returns the recorded call log, one "Method:detail" entry per call.
func (d *FakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// CountCalls counts log entries starting with prefix.
func (d *FakeDriver) CountCalls(prefix string) int {
	n := 0
	for _, c := range d.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (d *FakeDriver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *FakeDriver) scope() (string, string) {
	parts := make([]string, len(d.frames))
	for i, f := range d.frames {
		parts[i] = f.String()
	}
	return d.active, strings.Join(parts, ">")
}

func (d *FakeDriver) inScope(e *FakeElement) bool {
	w, f := d.scope()
	return e.Window == w && e.Frame == f
}

// FrameScope renders a frame path the way FakeElement.Frame expects it.
func FrameScope(frames ...schemas.Locator) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = f.String()
	}
	return strings.Join(parts, ">")
}

func (d *FakeDriver) element(el schemas.Element) (*FakeElement, error) {
	e := d.byID(el.ID)
	if e == nil {
		return nil, fmt.Errorf("stale element %s (id %d)", el.Locator, el.ID)
	}
	return e, nil
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	d.record("Navigate:%s", url)
	d.URL = url
	d.frames = nil
	hook := d.OnNavigate
	d.mu.Unlock()
	if hook != nil {
		return hook(d, url)
	}
	return nil
}

func (d *FakeDriver) Reload(ctx context.Context) error {
	d.mu.Lock()
	d.record("Reload")
	d.frames = nil
	hook := d.OnReload
	d.mu.Unlock()
	if hook != nil {
		return hook(d)
	}
	return nil
}

func (d *FakeDriver) Find(ctx context.Context, loc schemas.Locator, timeout time.Duration) (schemas.Element, error) {
	d.mu.Lock()
	d.record("Find:%s", loc)
	hook := d.FindHook
	d.mu.Unlock()
	if hook != nil {
		if err := hook(loc); err != nil {
			return schemas.Element{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return schemas.Element{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.elements {
		if !e.Hidden && d.inScope(e) && e.matches(loc) {
			return schemas.Element{Locator: loc, ID: e.ID}, nil
		}
	}
	return schemas.Element{}, fmt.Errorf("%s not visible within %s: %w", loc, timeout, context.DeadlineExceeded)
}

func (d *FakeDriver) FindAll(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FindAll:%s", loc)
	var out []schemas.Element
	for _, e := range d.elements {
		if d.inScope(e) && e.matches(loc) {
			out = append(out, schemas.Element{Locator: loc, ID: e.ID})
		}
	}
	return out, nil
}

func (d *FakeDriver) Click(ctx context.Context, el schemas.Element) error {
	d.mu.Lock()
	d.record("Click:%s", el.Locator)
	e, err := d.element(el)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	e.Clicks++
	if e.ToggleOnClick {
		e.Selected = !e.Selected
	}
	hook := e.OnClick
	d.mu.Unlock()
	if hook != nil {
		hook(d, e)
	}
	return nil
}

func (d *FakeDriver) Clear(ctx context.Context, el schemas.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Clear:%s", el.Locator)
	e, err := d.element(el)
	if err != nil {
		return err
	}
	if !e.IgnoreTyping {
		e.Value = ""
	}
	return nil
}

func (d *FakeDriver) Type(ctx context.Context, el schemas.Element, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Type:%s", el.Locator)
	e, err := d.element(el)
	if err != nil {
		return err
	}
	if !e.IgnoreTyping && e.accepts(e.Value+text) {
		e.Value += text
	}
	return nil
}

func (d *FakeDriver) Value(ctx context.Context, el schemas.Element) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, err := d.element(el)
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

func (d *FakeDriver) SetValue(ctx context.Context, el schemas.Element, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetValue:%s", el.Locator)
	e, err := d.element(el)
	if err != nil {
		return err
	}
	if !e.RejectInjection && e.accepts(value) {
		e.Value = value
	}
	return nil
}

func (d *FakeDriver) Attribute(ctx context.Context, el schemas.Element, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, err := d.element(el)
	if err != nil {
		return "", false, err
	}
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (d *FakeDriver) Text(ctx context.Context, el schemas.Element) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, err := d.element(el)
	if err != nil {
		return "", err
	}
	return e.Text, nil
}

func (d *FakeDriver) IsEnabled(ctx context.Context, el schemas.Element) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("IsEnabled:%s", el.Locator)
	e, err := d.element(el)
	if err != nil {
		return false, err
	}
	return !e.Disabled, nil
}

func (d *FakeDriver) IsSelected(ctx context.Context, el schemas.Element) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, err := d.element(el)
	if err != nil {
		return false, err
	}
	return e.Selected, nil
}

func (d *FakeDriver) ScrollIntoView(ctx context.Context, el schemas.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ScrollIntoView:%s", el.Locator)
	_, err := d.element(el)
	return err
}

func (d *FakeDriver) SetFiles(ctx context.Context, el schemas.Element, paths []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetFiles:%s", el.Locator)
	e, err := d.element(el)
	if err != nil {
		return err
	}
	e.Files = append([]string(nil), paths...)
	return nil
}

func (d *FakeDriver) CallOn(ctx context.Context, el schemas.Element, fn string, res interface{}, args ...interface{}) error {
	d.mu.Lock()
	d.record("CallOn:%s", el.Locator)
	e, err := d.element(el)
	hook := d.OnCallOn
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		return hook(d, e, fn, res, args)
	}
	if len(args) == 1 {
		if v, ok := args[0].(string); ok {
			d.mu.Lock()
			e.Value = v
			e.Attrs["data-value"] = v
			d.mu.Unlock()
		}
	}
	return nil
}

func (d *FakeDriver) Evaluate(ctx context.Context, script string, res interface{}) error {
	d.mu.Lock()
	d.record("Evaluate")
	hook := d.OnEvaluate
	d.mu.Unlock()
	if hook != nil {
		return hook(d, script, res)
	}
	return nil
}

// PageSource returns Source when set, otherwise the text of every visible
// element in the active window.
func (d *FakeDriver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Source != "" {
		return d.Source, nil
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, e := range d.elements {
		if e.Window == d.active && !e.Hidden && e.Text != "" {
			b.WriteString("<div>" + e.Text + "</div>")
		}
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (d *FakeDriver) CurrentContext() schemas.ContextHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return schemas.ContextHandle{Window: d.active, Frames: append([]schemas.Locator(nil), d.frames...)}
}

func (d *FakeDriver) OpenWindow(ctx context.Context, url string) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", fmt.Errorf("driver closed")
	}
	d.winSeq++
	handle := fmt.Sprintf("window-%d", d.winSeq)
	d.windows[handle] = url
	d.record("OpenWindow:%s", url)
	hook := d.OnOpenWindow
	d.mu.Unlock()
	if hook != nil {
		if err := hook(d, handle, url); err != nil {
			return "", err
		}
	}
	return handle, nil
}

func (d *FakeDriver) SwitchWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SwitchWindow:%s", handle)
	if _, ok := d.windows[handle]; !ok {
		return fmt.Errorf("unknown window %q", handle)
	}
	d.active = handle
	d.frames = nil
	return nil
}

func (d *FakeDriver) CloseWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CloseWindow:%s", handle)
	if handle == MainWindow {
		return fmt.Errorf("refusing to close the primary window")
	}
	if _, ok := d.windows[handle]; !ok {
		return fmt.Errorf("unknown window %q", handle)
	}
	delete(d.windows, handle)
	if d.active == handle {
		d.active = MainWindow
		d.frames = nil
	}
	return nil
}

// OpenWindows lists the handles of windows that have not been closed.
func (d *FakeDriver) OpenWindows() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for h := range d.windows {
		out = append(out, h)
	}
	return out
}

func (d *FakeDriver) SwitchFrame(ctx context.Context, loc schemas.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SwitchFrame:%s", loc)
	for _, e := range d.elements {
		if !e.Hidden && d.inScope(e) && e.matches(loc) {
			d.frames = append(d.frames, loc)
			return nil
		}
	}
	return fmt.Errorf("frame %s not found", loc)
}

func (d *FakeDriver) RestoreContext(ctx context.Context, h schemas.ContextHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("RestoreContext:%s", h.Window)
	if _, ok := d.windows[h.Window]; !ok {
		return fmt.Errorf("unknown window %q", h.Window)
	}
	d.active = h.Window
	d.frames = append([]schemas.Locator(nil), h.Frames...)
	return nil
}

func (d *FakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Close")
	d.closed = true
	return nil
}
