package wizard_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/regwizard/internal/browser"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/mailbox"
	"github.com/xkilldash9x/regwizard/internal/wizard"
)

// TestRegistrationLive runs the whole flow against the deployed application
// with a real browser and the real mail provider. It needs network access
// and Chrome, so it only runs with REGWIZARD_E2E=1. Settings come from the
// usual REGWIZARD_* environment variables.
func TestRegistrationLive(t *testing.T) {
	if os.Getenv("REGWIZARD_E2E") != "1" {
		t.Skip("set REGWIZARD_E2E=1 to run the live registration test")
	}

	v := viper.New()
	config.SetDefaults(v)
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(config.EnvKeyReplacer)
	v.AutomaticEnv()
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	session, err := browser.Launch(ctx, cfg.Browser(), logger)
	require.NoError(t, err)
	defer session.Close(context.Background())

	codes, err := mailbox.New(cfg.Mailbox(), session, logger)
	require.NoError(t, err)

	report, err := wizard.NewOrchestrator(cfg, session, codes, logger).Run(ctx)
	for _, s := range report.Steps {
		t.Logf("%-22s success=%-5t attempts=%d duration=%s", s.Step, s.Success, s.Attempts, s.Duration)
	}
	require.NoError(t, err, "snapshot: %s", report.Final.Snapshot)
	assert.True(t, report.Success())
}
