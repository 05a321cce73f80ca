package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// Upload assigns paths to the file inputs matched by target, one path per
// input in document order. The inputs may be hidden.
func (c *Controller) Upload(ctx context.Context, d schemas.Driver, target schemas.Locator, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	inputs, err := d.FindAll(ctx, target)
	if err != nil {
		return schemas.NewError(schemas.ErrCodeElementNotFound, target.String(), err)
	}
	if len(inputs) < len(paths) {
		return schemas.Errorf(schemas.ErrCodeInsufficientUploadTargets, target.String(),
			"%d documents but only %d file inputs", len(paths), len(inputs))
	}

	for i, p := range paths {
		if err := d.SetFiles(ctx, inputs[i], []string{p}); err != nil {
			return schemas.NewError(schemas.ErrCodeFieldFillFailed, fmt.Sprintf("upload %d", i+1), err)
		}
		c.logger.Debug("Document attached.", zap.Int("input", i), zap.String("path", p))
	}
	return nil
}
