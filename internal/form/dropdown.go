package form

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// Dropdown is a custom select: a trigger that opens a list of option elements.
type Dropdown struct {
	Name    string
	Trigger []schemas.Locator
	Options schemas.Locator
	Want    string
}

// jsInjectChoice writes a value into a custom dropdown without its list. It
// sets data-value, the visible label, and the nearest hidden or native select
// input so the form library sees it on submit.
const jsInjectChoice = `function(v) {
	this.setAttribute('data-value', v);
	const root = this.closest('[role="combobox"], .select, [data-radix-select-trigger], div') || this;
	const label = this.querySelector('span') || this;
	label.textContent = v;
	const inputs = root.parentElement ? root.parentElement.querySelectorAll('input[type="hidden"], select') : [];
	for (const input of inputs) {
		if (input.tagName === 'SELECT') {
			let opt = Array.from(input.options).find(o => o.text.toLowerCase().includes(v.toLowerCase()));
			if (!opt) { opt = new Option(v, v); input.add(opt); }
			input.value = opt.value;
		} else {
			input.value = v;
		}
		input.dispatchEvent(new Event('input', {bubbles: true}));
		input.dispatchEvent(new Event('change', {bubbles: true}));
	}
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return v;
}`

// Select opens the dropdown and picks the first option whose text contains
// Want (case-insensitive), or the first option if none does. When no options
// render the value is injected into the trigger instead. It returns the text
// that was chosen.
func (c *Controller) Select(ctx context.Context, d schemas.Driver, dd Dropdown) (string, error) {
	logger := c.logger.With(zap.String("dropdown", dd.Name))

	trigger, err := c.resolver.Resolve(ctx, d, dd.Name, dd.Trigger...)
	if err != nil {
		return "", err
	}
	if err := d.ScrollIntoView(ctx, trigger); err != nil {
		return "", schemas.NewError(schemas.ErrCodeFieldFillFailed, dd.Name, err)
	}
	if err := d.Click(ctx, trigger); err != nil {
		return "", schemas.NewError(schemas.ErrCodeFieldFillFailed, dd.Name, err)
	}

	if _, err := d.Find(ctx, dd.Options, c.optionsTimeout); err != nil {
		logger.Warn("Dropdown options did not render; injecting value.", zap.Error(err))
		return c.inject(ctx, d, trigger, dd)
	}
	options, err := d.FindAll(ctx, dd.Options)
	if err != nil {
		return "", schemas.NewError(schemas.ErrCodeFieldFillFailed, dd.Name, err)
	}
	if len(options) == 0 {
		logger.Warn("Dropdown option list is empty; injecting value.")
		return c.inject(ctx, d, trigger, dd)
	}

	want := strings.ToLower(strings.TrimSpace(dd.Want))
	chosen, chosenText := options[0], ""
	matched := false
	for i, opt := range options {
		text, err := d.Text(ctx, opt)
		if err != nil {
			logger.Debug("Could not read option text.", zap.Int("index", i), zap.Error(err))
			continue
		}
		if i == 0 {
			chosenText = strings.TrimSpace(text)
		}
		if want != "" && strings.Contains(strings.ToLower(text), want) {
			chosen, chosenText, matched = opt, strings.TrimSpace(text), true
			break
		}
	}
	if !matched {
		logger.Info("No option matched; using the first option.",
			zap.String("want", dd.Want), zap.String("chosen", chosenText))
	}

	if err := d.ScrollIntoView(ctx, chosen); err != nil {
		logger.Debug("Scrolling option failed.", zap.Error(err))
	}
	if err := d.Click(ctx, chosen); err != nil {
		return "", schemas.NewError(schemas.ErrCodeFieldFillFailed, dd.Name, fmt.Errorf("clicking option %q: %w", chosenText, err))
	}
	logger.Debug("Dropdown option selected.", zap.String("option", chosenText))
	return chosenText, nil
}

func (c *Controller) inject(ctx context.Context, d schemas.Driver, trigger schemas.Element, dd Dropdown) (string, error) {
	var res string
	if err := d.CallOn(ctx, trigger, jsInjectChoice, &res, dd.Want); err != nil {
		return "", schemas.NewError(schemas.ErrCodeFieldFillFailed, dd.Name, fmt.Errorf("injecting value: %w", err))
	}
	return dd.Want, nil
}
