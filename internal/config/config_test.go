// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "regwizard", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 5*time.Second, cfg.Form().ElementTimeout)
	assert.False(t, cfg.Form().StrictReadback)
	assert.Equal(t, "https://authorized-partner.netlify.app/register", cfg.Wizard().RegistrationURL)
	assert.Equal(t, 40*time.Second, cfg.Wizard().StepTimeout)
	assert.Equal(t, 3, cfg.Wizard().StepRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.Wizard().TransitionDelay)
	assert.Equal(t, 500, cfg.Wizard().SnapshotLimit)
	assert.Equal(t, "mailinator.com", cfg.Wizard().EmailDomain)
	assert.Equal(t, "api", cfg.Mailbox().Mode)
	assert.Equal(t, 18, cfg.Mailbox().PollAttempts)
	assert.Equal(t, 5*time.Second, cfg.Mailbox().PollDelay)
	assert.Equal(t, "public/mailinator.com", cfg.Mailbox().API.Domain)
	assert.Equal(t, 993, cfg.Mailbox().IMAP.Port)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Struct Tags", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.WizardCfg.StepRetries = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wizard.step_retries")
		assert.Contains(t, err.Error(), "'min'")

		cfg = NewDefaultConfig()
		cfg.MailboxCfg.Mode = "carrier-pigeon"
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mailbox.mode")

		cfg = NewDefaultConfig()
		cfg.WizardCfg.RegistrationURL = "not a url"
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wizard.registration_url")
	})

	t.Run("IMAP Requires Server", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetMailboxMode("imap")
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mailbox.imap.host")

		cfg.MailboxCfg.IMAP.Host = "mail.example.com"
		cfg.MailboxCfg.IMAP.Username = "qa"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Web Inbox Placeholder", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetMailboxMode("webui")
		assert.NoError(t, cfg.Validate())

		cfg.MailboxCfg.Web.InboxURL = "https://example.com/inbox"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "placeholder")
	})

	t.Run("Documents Must Exist", func(t *testing.T) {
		dir := t.TempDir()
		doc := filepath.Join(dir, "license.pdf")
		require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.4"), 0o600))

		cfg := NewDefaultConfig()
		cfg.SetWizardDocuments([]string{doc})
		assert.NoError(t, cfg.Validate())

		cfg.SetWizardDocuments([]string{doc, filepath.Join(dir, "missing.pdf")})
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wizard.documents[1]")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("YAML Overrides", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yaml := []byte(`
logger:
  level: debug
wizard:
  step_retries: 5
  transition_delay: 250ms
mailbox:
  mode: webui
  poll_attempts: 3
form:
  strict_readback: true
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logger().Level)
		assert.Equal(t, 5, cfg.Wizard().StepRetries)
		assert.Equal(t, 250*time.Millisecond, cfg.Wizard().TransitionDelay)
		assert.Equal(t, "webui", cfg.Mailbox().Mode)
		assert.Equal(t, 3, cfg.Mailbox().PollAttempts)
		assert.True(t, cfg.Form().StrictReadback)
		// Untouched keys keep their defaults.
		assert.Equal(t, 5*time.Second, cfg.Mailbox().PollDelay)
	})

	t.Run("Secret From Environment", func(t *testing.T) {
		t.Setenv("REGWIZARD_MAILBOX_API_TOKEN", "s3cr3t")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", cfg.Mailbox().API.Token)
	})

	t.Run("Invalid Config Rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("mailbox.poll_attempts", 0)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestExpandPaths(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg := NewDefaultConfig()
	cfg.WizardCfg.Documents = []string{"~/docs/a.pdf", "/abs/b.pdf"}
	cfg.LoggerCfg.LogFile = "~/regwizard.log"

	require.NoError(t, cfg.ExpandPaths())
	assert.Equal(t, filepath.Join(home, "docs/a.pdf"), cfg.Wizard().Documents[0])
	assert.Equal(t, "/abs/b.pdf", cfg.Wizard().Documents[1])
	assert.Equal(t, filepath.Join(home, "regwizard.log"), cfg.Logger().LogFile)
}
