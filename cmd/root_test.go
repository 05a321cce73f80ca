package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/regwizard/internal/observability"
)

// executeCmd runs the root command with args and returns its stdout.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	// Keep a stray regwizard.yaml in the package dir from leaking in.
	t.Chdir(t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCmd(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "regwizard version "+Version)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "regwizard "+Version+"\n", out)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "identity", "version"})
}

func TestRootCmd_ConfigFile(t *testing.T) {
	t.Run("explicit file is read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("wizard:\n  email_domain: example.org\n"), 0o644))

		out, err := executeCmd(t, "--config", path, "identity")
		require.NoError(t, err)
		assert.Contains(t, out, "@example.org")
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := executeCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "identity")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		t.Setenv("REGWIZARD_WIZARD_STEP_RETRIES", "0")
		_, err := executeCmd(t, "identity")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wizard.step_retries")
	})
}

func TestExecute_ExitCode(t *testing.T) {
	var code int
	osExit = func(c int) { code = c }
	t.Cleanup(func() { osExit = os.Exit })

	args := os.Args
	os.Args = []string{"regwizard", "no-such-command"}
	t.Cleanup(func() { os.Args = args })
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	Execute()
	assert.Equal(t, 1, code)
}

func TestIdentityCmd(t *testing.T) {
	t.Setenv("REGWIZARD_WIZARD_EMAIL_DOMAIN", "example.org")

	t.Run("password masked", func(t *testing.T) {
		out, err := executeCmd(t, "identity")
		require.NoError(t, err)
		assert.Regexp(t, `Email:\s+test[a-z0-9]{8}@example\.org`, out)
		assert.Contains(t, out, "Password:     <15 chars>")
		assert.Contains(t, out, "Global Education")
		assert.Regexp(t, `Registration: BRN-[A-Z0-9]{8}`, out)
	})

	t.Run("password shown on request", func(t *testing.T) {
		out, err := executeCmd(t, "identity", "--show-password")
		require.NoError(t, err)
		assert.Regexp(t, `Password:\s+Strong@[A-Za-z0-9]{8}\n`, out)
	})
}
