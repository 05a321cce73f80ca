package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/mocks"
)

// stubBrowser swaps the launcher for one returning d and records the
// browser config it was given.
func stubBrowser(t *testing.T, d *mocks.FakeDriver, err error) *config.BrowserConfig {
	t.Helper()
	var got config.BrowserConfig
	orig := launchBrowser
	t.Cleanup(func() { launchBrowser = orig })
	launchBrowser = func(_ context.Context, cfg config.BrowserConfig, _ *zap.Logger) (browserSession, error) {
		got = cfg
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return &got
}

func TestRunCmd_FailsAtFirstStep(t *testing.T) {
	// An empty page: the terms checkbox never appears.
	d := mocks.NewFakeDriver()
	got := stubBrowser(t, d, nil)
	reportPath := filepath.Join(t.TempDir(), "out", "report.json")

	out, err := executeCmd(t, "run", "--headless=false", "--url", "https://partner.test/register", "-o", reportPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrStepNotReached)
	assert.False(t, got.Headless)
	assert.Equal(t, 1, d.CountCalls("Navigate"))
	assert.Contains(t, out, "Registration failed at Account Setup")

	data, readErr := os.ReadFile(reportPath)
	require.NoError(t, readErr)
	var rep struct {
		Success   bool   `json:"success"`
		ErrorCode string `json:"error_code"`
		Email     string `json:"email"`
		Final     struct {
			Step string `json:"step"`
		} `json:"final"`
	}
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.False(t, rep.Success)
	assert.Equal(t, string(schemas.ErrCodeStepNotReached), rep.ErrorCode)
	assert.Equal(t, "Account Setup", rep.Final.Step)
	assert.Contains(t, rep.Email, "@mailinator.com")
}

func TestRunCmd_LaunchFailure(t *testing.T) {
	stubBrowser(t, nil, errors.New("chrome not found"))
	_, err := executeCmd(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch browser: chrome not found")
}

func TestRunCmd_InvalidFlags(t *testing.T) {
	d := mocks.NewFakeDriver()
	stubBrowser(t, d, nil)

	_, err := executeCmd(t, "run", "--mailbox-mode", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox.mode")

	_, err = executeCmd(t, "run", "--document", filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard.documents[0]")

	assert.Empty(t, d.Calls())
}

func TestEnsureDocuments(t *testing.T) {
	t.Run("bundled samples when none configured", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		require.Empty(t, cfg.Wizard().Documents)

		cleanup, err := ensureDocuments(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		docs := cfg.Wizard().Documents
		require.Len(t, docs, 2)
		for _, doc := range docs {
			assert.FileExists(t, doc)
		}
		assert.NoError(t, cfg.Validate())

		cleanup()
		for _, doc := range docs {
			assert.NoFileExists(t, doc)
		}
	})

	t.Run("configured documents kept", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.SetWizardDocuments([]string{"/docs/a.pdf"})
		cleanup, err := ensureDocuments(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		cleanup()
		assert.Equal(t, []string{"/docs/a.pdf"}, cfg.Wizard().Documents)
	})
}

func TestRunRegistration_ClosesBrowser(t *testing.T) {
	d := mocks.NewFakeDriver()
	stubBrowser(t, d, nil)
	cfg := config.NewDefaultConfig()
	cfg.MailboxCfg.Mode = "webui"

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := runRegistration(ctx, &out, cfg, "", zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Equal(t, 1, d.CountCalls("Close"))
	assert.Contains(t, out.String(), "STEP")
}
