package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// Field describes one input: its logical name, the locators to try in order,
// and the value it should end up holding.
type Field struct {
	Name       string
	Candidates []schemas.Locator
	Value      string
	// Secret suppresses the value in logs.
	Secret bool
}

// Resolver tries candidate locators in order, each with its own bounded wait.
type Resolver struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Resolve returns the first candidate that yields a visible element. Later
// candidates are not tried once one succeeds. When all fail the error is an
// ElementNotFound naming field.
func (r Resolver) Resolve(ctx context.Context, d schemas.Driver, field string, candidates ...schemas.Locator) (schemas.Element, error) {
	if len(candidates) == 0 {
		return schemas.Element{}, schemas.NewError(schemas.ErrCodeElementNotFound, field, errors.New("no candidate locators"))
	}
	logger := r.logger()

	var errs []error
	for i, loc := range candidates {
		el, err := d.Find(ctx, loc, r.Timeout)
		if err == nil {
			if i > 0 {
				logger.Debug("Resolved with fallback locator.",
					zap.String("field", field), zap.Stringer("locator", loc), zap.Int("candidate", i+1))
			}
			return el, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return schemas.Element{}, fmt.Errorf("resolving %s: %w", field, ctxErr)
		}
		errs = append(errs, err)
	}

	logger.Debug("No candidate locator matched.", zap.String("field", field), zap.Int("candidates", len(candidates)))
	return schemas.Element{}, schemas.NewError(schemas.ErrCodeElementNotFound, field,
		fmt.Errorf("tried %d locators: %w", len(candidates), errors.Join(errs...)))
}

func (r Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
