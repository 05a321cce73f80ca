package form

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// jsControlState reads the checked state of the control a label (or a
// wrapper without state of its own) is bound to: the label's control, then a
// checkbox or switch inside it, then its for= target.
const jsControlState = `function() {
	let c = this.control || null;
	if (!c) { c = this.querySelector('input[type="checkbox"], [role="checkbox"], [role="switch"]'); }
	if (!c && this.htmlFor) { c = document.getElementById(this.htmlFor); }
	if (!c || c === this) { return {found: false, on: false}; }
	if (typeof c.checked === 'boolean' && (c.type === 'checkbox' || c.type === 'radio')) {
		return {found: true, on: c.checked};
	}
	const v = (c.getAttribute('aria-checked') || c.getAttribute('aria-pressed') || c.getAttribute('data-state') || '').trim().toLowerCase();
	return {found: true, on: ['true', 'checked', 'on', 'mixed'].includes(v)};
}`

// controlState is the result of jsControlState.
type controlState struct {
	Found bool `json:"found"`
	On    bool `json:"on"`
}

// ToggleCandidates lists the locators tried, in order, for a checkbox-like
// control identified by its label text.
func ToggleCandidates(label string) []schemas.Locator {
	lit := schemas.XPathLiteral(label)
	has := "contains(normalize-space(.), " + lit + ")"
	return []schemas.Locator{
		schemas.ByXPath("//*[(@role='checkbox' or @role='switch') and (" + has + " or contains(@aria-label, " + lit + "))]"),
		schemas.ByXPath("//label[" + has + "]//*[@role='checkbox' or @role='switch' or @type='checkbox' or self::button]"),
		schemas.ByXPath("//*[@id=//label[" + has + "]/@for]"),
		schemas.ByXPath("//label[" + has + "]/preceding-sibling::*[@role='checkbox' or @type='checkbox' or self::button][1]"),
		schemas.ByXPath("//label[" + has + "]/following-sibling::*[@role='checkbox' or @type='checkbox' or self::button][1]"),
		schemas.ByXPath("//*[" + has + "]/ancestor-or-self::*[@role='checkbox' or @role='button' or self::label][1]"),
	}
}

// Activate ensures the toggle labelled label is on. It clicks only when the
// control reports an inactive state, so calling it repeatedly is safe. It
// reports whether a click was made.
func (c *Controller) Activate(ctx context.Context, d schemas.Driver, label string) (bool, error) {
	name := "toggle " + label
	el, err := c.resolver.Resolve(ctx, d, name, ToggleCandidates(label)...)
	if err != nil {
		return false, err
	}

	on, err := c.toggleState(ctx, d, el)
	if err != nil {
		return false, schemas.NewError(schemas.ErrCodeFieldFillFailed, name, err)
	}
	if on {
		c.logger.Debug("Toggle already active.", zap.String("label", label))
		return false, nil
	}

	if err := d.ScrollIntoView(ctx, el); err != nil {
		return false, schemas.NewError(schemas.ErrCodeFieldFillFailed, name, err)
	}
	if err := d.Click(ctx, el); err != nil {
		return false, schemas.NewError(schemas.ErrCodeFieldFillFailed, name, err)
	}

	if on, err := c.toggleState(ctx, d, el); err == nil && !on {
		c.logger.Warn("Toggle still reports inactive after click.", zap.String("label", label))
	}
	return true, nil
}

// ActivateAll activates each label in order and stops at the first error.
func (c *Controller) ActivateAll(ctx context.Context, d schemas.Driver, labels ...string) error {
	for _, l := range labels {
		if _, err := c.Activate(ctx, d, l); err != nil {
			return err
		}
	}
	return nil
}

// toggleState reads the element's own state attributes. An element with none,
// such as a label wrapping a hidden checkbox, reports its bound control's
// state; only when there is no such control does IsSelected decide.
func (c *Controller) toggleState(ctx context.Context, d schemas.Driver, el schemas.Element) (bool, error) {
	for _, attr := range []string{"aria-checked", "aria-pressed", "data-state"} {
		v, ok, err := d.Attribute(ctx, el, attr)
		if err != nil {
			return false, fmt.Errorf("reading %s: %w", attr, err)
		}
		if ok {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "checked", "on", "mixed":
				return true, nil
			default:
				return false, nil
			}
		}
	}

	var bound controlState
	if err := d.CallOn(ctx, el, jsControlState, &bound); err != nil {
		return false, fmt.Errorf("reading bound control state: %w", err)
	}
	if bound.Found {
		return bound.On, nil
	}
	return d.IsSelected(ctx, el)
}
