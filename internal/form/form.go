// Package form fills and operates form controls through a schemas.Driver:
// text fields, custom dropdowns, checkbox-style toggles and file uploads.
package form

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
)

const (
	defaultElementTimeout = 5 * time.Second
	defaultOptionsTimeout = 5 * time.Second
)

// Controller bundles the form operations with shared lookup settings.
type Controller struct {
	resolver       Resolver
	optionsTimeout time.Duration
	strict         bool
	logger         *zap.Logger
}

func New(cfg config.FormConfig, logger *zap.Logger) *Controller {
	logger = logger.Named("form")
	timeout := cfg.ElementTimeout
	if timeout <= 0 {
		timeout = defaultElementTimeout
	}
	optionsTimeout := cfg.OptionsTimeout
	if optionsTimeout <= 0 {
		optionsTimeout = defaultOptionsTimeout
	}
	return &Controller{
		resolver:       Resolver{Timeout: timeout, Logger: logger},
		optionsTimeout: optionsTimeout,
		strict:         cfg.StrictReadback,
		logger:         logger,
	}
}

// Resolve exposes the controller's locator strategy.
func (c *Controller) Resolve(ctx context.Context, d schemas.Driver, field string, candidates ...schemas.Locator) (schemas.Element, error) {
	return c.resolver.Resolve(ctx, d, field, candidates...)
}

// ElementTimeout is the per-candidate wait used by Resolve.
func (c *Controller) ElementTimeout() time.Duration { return c.resolver.Timeout }
