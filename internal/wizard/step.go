// Package wizard drives the partner registration wizard step by step.
package wizard

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/form"
	"github.com/xkilldash9x/regwizard/internal/retry"
)

// Step is one page of the wizard.
type Step interface {
	Name() string
	Run(ctx context.Context, d schemas.Driver, id schemas.Identity) schemas.StepResult
}

const (
	markerCheckTimeout = 500 * time.Millisecond
	snapshotTimeout    = 10 * time.Second
	enabledAttempts    = 10
	enabledDelay       = 300 * time.Millisecond
)

// stepPlan declares a step for the Runner.
type stepPlan struct {
	name string
	// entry must be visible before anything is filled.
	entry []schemas.Locator
	fill  func(ctx context.Context, d schemas.Driver, id schemas.Identity) error
	// submit is clicked once fill succeeds; beforeSubmit may veto the click.
	submit       []schemas.Locator
	beforeSubmit func(ctx context.Context, d schemas.Driver, btn schemas.Element) error
	// next marks the following page. Any one of them being visible counts.
	next []schemas.Locator
}

// Runner executes steps with the shared wait, submit and retry behavior.
type Runner struct {
	cfg     config.WizardConfig
	form    *form.Controller
	markers form.Resolver
	logger  *zap.Logger
	// sleep paces transition polling; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(cfg config.WizardConfig, fc *form.Controller, logger *zap.Logger) *Runner {
	logger = logger.Named("wizard")
	if cfg.StepRetries < 1 {
		cfg.StepRetries = 1
	}
	if cfg.TransitionAttempts < 1 {
		cfg.TransitionAttempts = 1
	}
	return &Runner{
		cfg:     cfg,
		form:    fc,
		markers: form.Resolver{Timeout: cfg.StepTimeout, Logger: logger},
		logger:  logger,
		sleep:   retry.SleepContext,
	}
}

// Form returns the controller used to fill fields.
func (r *Runner) Form() *form.Controller { return r.form }

func (r *Runner) run(ctx context.Context, d schemas.Driver, id schemas.Identity, s stepPlan) (res schemas.StepResult) {
	start := time.Now()
	res.Step = s.name
	logger := r.logger.With(zap.String("step", s.name))
	defer func() { res.Duration = time.Since(start) }()

	logger.Info("Entering step.")
	if _, err := r.markers.Resolve(ctx, d, s.name+" entry marker", s.entry...); err != nil {
		return r.fail(ctx, d, res, schemas.NewError(schemas.ErrCodeStepNotReached, s.name, err))
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.StepRetries; attempt++ {
		res.Attempts = attempt
		if attempt > 1 && r.cfg.ReloadOnRetry {
			if err := d.Reload(ctx); err != nil {
				lastErr = fmt.Errorf("reloading: %w", err)
				logger.Warn("Reload before retry failed.", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if _, err := r.markers.Resolve(ctx, d, s.name+" entry marker", s.entry...); err != nil {
				lastErr = err
				logger.Warn("Step page not shown after reload.", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
		}

		if s.fill != nil {
			if err := s.fill(ctx, d, id); err != nil {
				return r.fail(ctx, d, res, err)
			}
		}

		err := r.submit(ctx, d, s)
		if err == nil {
			res.Success = true
			res.Message = fmt.Sprintf("%s completed", s.name)
			logger.Info("Step completed.", zap.Int("attempts", attempt))
			return res
		}
		if ctx.Err() != nil {
			return r.fail(ctx, d, res, err)
		}
		lastErr = err
		logger.Warn("Step transition failed.", zap.Int("attempt", attempt), zap.Int("max_attempts", r.cfg.StepRetries), zap.Error(err))
	}

	return r.fail(ctx, d, res, schemas.NewError(schemas.ErrCodeStepTransitionFailed, s.name,
		fmt.Errorf("after %d attempts: %w", r.cfg.StepRetries, lastErr)))
}

func (r *Runner) submit(ctx context.Context, d schemas.Driver, s stepPlan) error {
	btn, err := r.form.Resolve(ctx, d, s.name+" submit", s.submit...)
	if err != nil {
		return err
	}
	if s.beforeSubmit != nil {
		if err := s.beforeSubmit(ctx, d, btn); err != nil {
			return err
		}
	}
	if err := d.ScrollIntoView(ctx, btn); err != nil {
		r.logger.Debug("Scrolling submit control failed.", zap.Error(err))
	}
	if err := d.Click(ctx, btn); err != nil {
		return fmt.Errorf("clicking %s: %w", btn.Locator, err)
	}
	return r.awaitNext(ctx, d, s)
}

// awaitNext polls until one of the next-page markers is visible.
func (r *Runner) awaitNext(ctx context.Context, d schemas.Driver, s stepPlan) error {
	pol := retry.Policy{
		MaxAttempts: r.cfg.TransitionAttempts,
		Delay:       r.cfg.TransitionDelay,
		Sleep:       r.sleep,
		Logger:      r.logger,
	}
	_, err := retry.Poll(ctx, pol, "page after "+s.name, func(ctx context.Context, _ int) (schemas.Locator, bool, error) {
		for _, loc := range s.next {
			if _, err := d.Find(ctx, loc, markerCheckTimeout); err == nil {
				return loc, true, nil
			}
		}
		return schemas.Locator{}, false, nil
	})
	return err
}

// requireEnabled waits briefly for btn to become enabled.
func (r *Runner) requireEnabled(ctx context.Context, d schemas.Driver, btn schemas.Element) error {
	pol := retry.Policy{MaxAttempts: enabledAttempts, Delay: enabledDelay, Sleep: r.sleep, Logger: r.logger}
	_, err := retry.Poll(ctx, pol, btn.Locator.String()+" enabled", func(ctx context.Context, _ int) (bool, bool, error) {
		ok, err := d.IsEnabled(ctx, btn)
		return ok, ok, err
	})
	if err != nil {
		return fmt.Errorf("submit control never became enabled: %w", err)
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, d schemas.Driver, res schemas.StepResult, err error) schemas.StepResult {
	res.Success = false
	res.Err = fmt.Errorf("%s: %w", res.Step, err)
	res.Message = err.Error()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer cancel()
	if src, serr := d.PageSource(sctx); serr == nil {
		res.Snapshot = truncate(src, r.cfg.SnapshotLimit)
	} else {
		r.logger.Debug("Page snapshot unavailable.", zap.Error(serr))
	}

	r.logger.Error("Step failed.",
		zap.String("step", res.Step),
		zap.String("code", string(schemas.CodeOf(err))),
		zap.Int("attempts", res.Attempts),
		zap.Error(err))
	return res
}

// truncate keeps the first limit characters of s.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// plannedStep adapts a stepPlan to the Step interface.
type plannedStep struct {
	runner *Runner
	plan   func() stepPlan
	name   string
}

func (s *plannedStep) Name() string { return s.name }

func (s *plannedStep) Run(ctx context.Context, d schemas.Driver, id schemas.Identity) schemas.StepResult {
	return s.runner.run(ctx, d, id, s.plan())
}
