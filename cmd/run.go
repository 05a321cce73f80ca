package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/browser"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/mailbox"
	"github.com/xkilldash9x/regwizard/internal/observability"
	"github.com/xkilldash9x/regwizard/internal/wizard"
)

// browserSession is the part of *browser.Session the run command needs.
type browserSession interface {
	schemas.Driver
	Close(ctx context.Context) error
}

// launchBrowser is replaced in tests.
var launchBrowser = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browserSession, error) {
	s, err := browser.Launch(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type runOptions struct {
	headless    bool
	mailboxMode string
	documents   []string
	url         string
	timeout     time.Duration
	reportPath  string
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Registers a fresh identity through every wizard step",
		Long: `Generates a synthetic identity, opens the registration page and completes
terms, personal details, email verification, agency, experience and business
registration. The command fails if any step fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.apply(cmd, st.cfg); err != nil {
				return err
			}
			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			logger := observability.GetLogger()
			cleanup, err := ensureDocuments(st.cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return runRegistration(ctx, cmd.OutOrStdout(), st.cfg, opts.reportPath, logger)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.headless, "headless", true, "run Chrome without a window")
	flags.StringVar(&opts.mailboxMode, "mailbox-mode", "", "OTP retrieval binding: webui, api or imap")
	flags.StringSliceVar(&opts.documents, "document", nil, "document to upload on the business step (repeatable, in input order)")
	flags.StringVar(&opts.url, "url", "", "registration page URL")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall run deadline (0 disables)")
	flags.StringVarP(&opts.reportPath, "report", "o", "", "write the JSON run report to this file")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration and
// revalidates it.
func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.SetBrowserHeadless(o.headless)
	}
	if flags.Changed("mailbox-mode") {
		cfg.SetMailboxMode(o.mailboxMode)
	}
	if flags.Changed("document") {
		cfg.SetWizardDocuments(o.documents)
	}
	if flags.Changed("url") {
		cfg.SetWizardRegistrationURL(o.url)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ensureDocuments supplies the bundled sample documents when none are
// configured. The returned func removes them again.
func ensureDocuments(cfg config.Interface, logger *zap.Logger) (func(), error) {
	if len(cfg.Wizard().Documents) > 0 {
		return func() {}, nil
	}
	dir, err := os.MkdirTemp("", "regwizard-docs-")
	if err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	docs, err := wizard.WriteSampleDocuments(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	cfg.SetWizardDocuments(docs)
	logger.Info("No documents configured; uploading bundled samples.", zap.Strings("documents", docs))
	return func() { _ = os.RemoveAll(dir) }, nil
}

// runRegistration launches the browser, builds the OTP binding and runs the
// wizard. The summary always goes to out; the JSON report goes to
// reportPath when set.
func runRegistration(ctx context.Context, out io.Writer, cfg config.Interface, reportPath string, logger *zap.Logger) error {
	session, err := launchBrowser(ctx, cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser cleanly.", zap.Error(err))
		}
	}()

	codes, err := mailbox.New(cfg.Mailbox(), session, logger)
	if err != nil {
		return fmt.Errorf("failed to configure mailbox: %w", err)
	}

	report, runErr := wizard.NewOrchestrator(cfg, session, codes, logger).Run(ctx)

	printSummary(out, report)
	if reportPath != "" {
		if err := writeReportFile(report, reportPath); err != nil {
			logger.Error("Failed to write run report.", zap.String("path", reportPath), zap.Error(err))
			if runErr == nil {
				return err
			}
		} else {
			logger.Info("Run report written.", zap.String("path", reportPath))
		}
	}
	if runErr != nil {
		return fmt.Errorf("registration failed at %s: %w", report.Final.Step, runErr)
	}
	return nil
}
