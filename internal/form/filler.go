package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// Fill resolves the field and fills it.
func (c *Controller) Fill(ctx context.Context, d schemas.Driver, f Field) error {
	el, err := c.resolver.Resolve(ctx, d, f.Name, f.Candidates...)
	if err != nil {
		return err
	}
	return c.FillElement(ctx, d, el, f)
}

// FillElement scrolls el into view, clears it, types the value and reads it
// back. If the readback differs it injects the value directly and reads
// again. A remaining mismatch is a warning, or a FieldFillFailed when strict
// readback is enabled.
func (c *Controller) FillElement(ctx context.Context, d schemas.Driver, el schemas.Element, f Field) error {
	logger := c.logger.With(zap.String("field", f.Name))

	if err := d.ScrollIntoView(ctx, el); err != nil {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name, err)
	}
	if err := d.Clear(ctx, el); err != nil {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name, err)
	}
	if err := d.Type(ctx, el, f.Value); err != nil {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name, err)
	}

	got, err := d.Value(ctx, el)
	if err != nil {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name, err)
	}
	if got == f.Value {
		logger.Debug("Field filled.", zap.String("value", display(f, got)))
		return nil
	}

	logger.Warn("Typed value did not stick; injecting directly.",
		zap.String("expected", display(f, f.Value)), zap.String("actual", display(f, got)))
	if err := d.SetValue(ctx, el, f.Value); err != nil {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name, err)
	}
	got, err = d.Value(ctx, el)
	if err != nil {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name, err)
	}
	if got == f.Value {
		logger.Debug("Field filled by injection.")
		return nil
	}

	if c.strict {
		return schemas.NewError(schemas.ErrCodeFieldFillFailed, f.Name,
			fmt.Errorf("readback %q does not match expected value", display(f, got)))
	}
	logger.Warn("Field value still differs after injection; continuing.",
		zap.String("expected", display(f, f.Value)), zap.String("actual", display(f, got)))
	return nil
}

func display(f Field, v string) string {
	if f.Secret {
		return fmt.Sprintf("<%d chars>", len(v))
	}
	return v
}
