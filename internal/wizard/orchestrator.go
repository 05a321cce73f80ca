package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/form"
	"github.com/xkilldash9x/regwizard/internal/identity"
	"github.com/xkilldash9x/regwizard/internal/mailbox"
)

// IdentitySource produces the registrant for a run.
type IdentitySource interface {
	Generate() (schemas.Identity, error)
}

// Orchestrator runs the wizard steps in order against one browser session.
// The run succeeds only if every step does.
type Orchestrator struct {
	cfg    config.WizardConfig
	driver schemas.Driver
	steps  []Step
	ids    IdentitySource
	logger *zap.Logger
}

// DefaultSteps is the full registration flow.
func DefaultSteps(r *Runner, codes mailbox.CodeRetriever, documents []string) []Step {
	return []Step{
		AccountSetup(r),
		PersonalDetails(r),
		OTPVerification(r, codes),
		AgencyDetails(r),
		ExperienceDetails(r),
		BusinessRegistration(r, documents),
	}
}

func NewOrchestrator(cfg config.Interface, d schemas.Driver, codes mailbox.CodeRetriever, logger *zap.Logger) *Orchestrator {
	wcfg := cfg.Wizard()
	r := NewRunner(wcfg, form.New(cfg.Form(), logger), logger)
	return &Orchestrator{
		cfg:    wcfg,
		driver: d,
		steps:  DefaultSteps(r, codes, wcfg.Documents),
		ids:    identity.New(wcfg.EmailDomain),
		logger: logger.Named("orchestrator"),
	}
}

// Steps lists the step names in execution order.
func (o *Orchestrator) Steps() []string {
	names := make([]string, len(o.steps))
	for i, s := range o.steps {
		names[i] = s.Name()
	}
	return names
}

// Run generates an identity, opens the registration page and executes every
// step. It stops at the first failure and returns that step's error.
func (o *Orchestrator) Run(ctx context.Context) (schemas.RunReport, error) {
	report := schemas.RunReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := o.logger.With(zap.String("run_id", report.RunID))

	id, err := o.ids.Generate()
	if err != nil {
		return o.finish(report, schemas.StepResult{Step: "Identity", Message: err.Error(), Err: err}), fmt.Errorf("generating identity: %w", err)
	}
	report.Email = id.Email()
	logger.Info("Starting registration run.", zap.Object("identity", id), zap.String("url", o.cfg.RegistrationURL))

	if err := o.driver.Navigate(ctx, o.cfg.RegistrationURL); err != nil {
		err = fmt.Errorf("opening %s: %w", o.cfg.RegistrationURL, err)
		res := schemas.StepResult{Step: o.firstStep(), Message: err.Error(),
			Err: fmt.Errorf("%s: %w", o.firstStep(), schemas.NewError(schemas.ErrCodeStepNotReached, o.firstStep(), err))}
		logger.Error("Registration page did not load.", zap.Error(err))
		return o.finish(report, res), res.Err
	}

	var last schemas.StepResult
	for i, step := range o.steps {
		if err := ctx.Err(); err != nil {
			res := schemas.StepResult{Step: step.Name(), Message: err.Error(), Err: fmt.Errorf("%s: %w", step.Name(), err)}
			report.Steps = append(report.Steps, res)
			return o.finish(report, res), res.Err
		}

		last = step.Run(ctx, o.driver, id)
		report.Steps = append(report.Steps, last)
		if !last.Success {
			if last.Err == nil {
				last.Err = fmt.Errorf("%s: %s", last.Step, last.Message)
			}
			logger.Error("Registration run failed.",
				zap.String("step", last.Step),
				zap.Int("step_index", i+1),
				zap.Int("steps_total", len(o.steps)),
				zap.String("snapshot", last.Snapshot),
				zap.Error(last.Err))
			return o.finish(report, last), last.Err
		}
		logger.Info("Step passed.", zap.String("step", last.Step), zap.Duration("duration", last.Duration), zap.Int("attempts", last.Attempts))
	}

	if len(o.steps) == 0 {
		return o.finish(report, last), errors.New("no steps configured")
	}
	logger.Info("Registration completed.", zap.String("email", id.Email()), zap.Int("steps", len(o.steps)))
	return o.finish(report, last), nil
}

func (o *Orchestrator) finish(report schemas.RunReport, final schemas.StepResult) schemas.RunReport {
	report.Final = final
	report.FinishedAt = time.Now()
	return report
}

func (o *Orchestrator) firstStep() string {
	if len(o.steps) == 0 {
		return "Navigate"
	}
	return o.steps[0].Name()
}
