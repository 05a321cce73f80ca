// internal/browser/interaction.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// cssString quotes s as a CSS attribute value.
func cssString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// textXPath matches the innermost elements whose normalized text contains text.
func textXPath(text string) string {
	lit := schemas.XPathLiteral(text)
	return fmt.Sprintf(
		"//*[not(self::script or self::style)][contains(normalize-space(.), %s)][not(.//*[contains(normalize-space(.), %s)])]",
		lit, lit)
}

// query translates a locator into a chromedp selector and options, scoped to
// the active frame. When all is false the query resolves a single node.
func (s *Session) query(loc schemas.Locator, all bool) (string, []chromedp.QueryOption, error) {
	var (
		sel  string
		opts []chromedp.QueryOption
	)
	single := func(expr string) string {
		if all {
			return expr
		}
		return "(" + expr + ")[1]"
	}

	switch loc.Kind {
	case schemas.LocatorID:
		sel = "[id=" + cssString(loc.Value) + "]"
	case schemas.LocatorName:
		sel = "[name=" + cssString(loc.Value) + "]"
	case schemas.LocatorCSS:
		sel = loc.Value
	case schemas.LocatorXPath:
		sel = single(loc.Value)
		opts = append(opts, chromedp.BySearch)
	case schemas.LocatorText:
		sel = single(textXPath(loc.Value))
		opts = append(opts, chromedp.BySearch)
	default:
		return "", nil, fmt.Errorf("unsupported locator kind %q", loc.Kind)
	}

	if len(opts) == 0 {
		if all {
			opts = append(opts, chromedp.ByQueryAll)
		} else {
			opts = append(opts, chromedp.ByQuery)
		}
	}

	if frame := s.activeFrame(); frame != nil {
		opts = append(opts, chromedp.FromNode(frame))
	}
	return sel, opts, nil
}

func (s *Session) Find(ctx context.Context, loc schemas.Locator, timeout time.Duration) (schemas.Element, error) {
	sel, opts, err := s.query(loc, false)
	if err != nil {
		return schemas.Element{}, err
	}
	opts = append(opts, chromedp.NodeVisible)

	findCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := s.run(findCtx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return schemas.Element{}, fmt.Errorf("%s not visible within %s: %w", loc, timeout, err)
	}
	if len(nodes) == 0 {
		return schemas.Element{}, fmt.Errorf("%s matched no nodes", loc)
	}
	s.remember(nodes[:1])
	return schemas.Element{Locator: loc, ID: int64(nodes[0].NodeID)}, nil
}

func (s *Session) FindAll(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	sel, opts, err := s.query(loc, true)
	if err != nil {
		return nil, err
	}
	opts = append(opts, chromedp.AtLeast(0))

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %s failed: %w", loc, err)
	}
	s.remember(nodes)
	elements := make([]schemas.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, schemas.Element{Locator: loc, ID: int64(n.NodeID)})
	}
	return elements, nil
}

// CallOn resolves el to a remote object and calls fn on it.
func (s *Session) CallOn(ctx context.Context, el schemas.Element, fn string, res interface{}, args ...interface{}) error {
	n := s.node(el)
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", el.Locator, err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID).WithAwaitPromise(true)
			},
			args...,
		).Do(ctx)
	}))
}

func (s *Session) ScrollIntoView(ctx context.Context, el schemas.Element) error {
	if err := s.CallOn(ctx, el, jsScrollIntoView, nil); err != nil {
		return fmt.Errorf("scroll %s into view: %w", el.Locator, err)
	}
	return nil
}

// Click dispatches a real mouse click at the element's center, falling back
// to a DOM click when the element has no clickable box (for example when it
// is covered by a styled sibling).
func (s *Session) Click(ctx context.Context, el schemas.Element) error {
	mouseErr := s.run(ctx, chromedp.MouseClickNode(s.node(el)))
	if mouseErr == nil {
		return nil
	}
	s.logger.Debug("Mouse click failed; using DOM click.", zap.Stringer("locator", el.Locator), zap.Error(mouseErr))
	if err := s.CallOn(ctx, el, jsClick, nil); err != nil {
		return fmt.Errorf("click %s: %w (mouse click: %v)", el.Locator, err, mouseErr)
	}
	return nil
}

func (s *Session) Clear(ctx context.Context, el schemas.Element) error {
	if err := s.CallOn(ctx, el, jsClear, nil); err != nil {
		return fmt.Errorf("clear %s: %w", el.Locator, err)
	}
	return nil
}

// Type focuses the element and sends key events for text.
func (s *Session) Type(ctx context.Context, el schemas.Element, text string) error {
	n := s.node(el)
	err := s.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.Focus().WithNodeID(n.NodeID).Do(ctx)
		}),
		chromedp.KeyEvent(text),
	)
	if err != nil {
		return fmt.Errorf("type into %s: %w", el.Locator, err)
	}
	return nil
}

func (s *Session) Value(ctx context.Context, el schemas.Element) (string, error) {
	var v string
	if err := s.CallOn(ctx, el, jsValue, &v); err != nil {
		return "", fmt.Errorf("read value of %s: %w", el.Locator, err)
	}
	return v, nil
}

func (s *Session) SetValue(ctx context.Context, el schemas.Element, value string) error {
	if err := s.CallOn(ctx, el, jsSetValue, nil, value); err != nil {
		return fmt.Errorf("set value of %s: %w", el.Locator, err)
	}
	return nil
}

func (s *Session) Attribute(ctx context.Context, el schemas.Element, name string) (string, bool, error) {
	n := s.node(el)
	var attrs []string
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(n.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, fmt.Errorf("read attributes of %s: %w", el.Locator, err)
	}
	// Attributes come back as a flat name, value, name, value list.
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}

func (s *Session) Text(ctx context.Context, el schemas.Element) (string, error) {
	var text string
	if err := s.CallOn(ctx, el, jsText, &text); err != nil {
		return "", fmt.Errorf("read text of %s: %w", el.Locator, err)
	}
	return text, nil
}

func (s *Session) IsEnabled(ctx context.Context, el schemas.Element) (bool, error) {
	var enabled bool
	if err := s.CallOn(ctx, el, jsEnabled, &enabled); err != nil {
		return false, fmt.Errorf("read enabled state of %s: %w", el.Locator, err)
	}
	return enabled, nil
}

func (s *Session) IsSelected(ctx context.Context, el schemas.Element) (bool, error) {
	var selected bool
	if err := s.CallOn(ctx, el, jsSelected, &selected); err != nil {
		return false, fmt.Errorf("read selected state of %s: %w", el.Locator, err)
	}
	return selected, nil
}

func (s *Session) SetFiles(ctx context.Context, el schemas.Element, paths []string) error {
	n := s.node(el)
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.SetFileInputFiles(paths).WithNodeID(n.NodeID).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set files on %s: %w", el.Locator, err)
	}
	return nil
}
