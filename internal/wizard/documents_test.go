package wizard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSampleDocuments(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteSampleDocuments(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for i, p := range paths {
		assert.Equal(t, filepath.Join(dir, SampleDocumentNames[i]), p)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, len(data) > 8 && string(data[:5]) == "%PDF-", "%s is not a PDF", p)
	}

	t.Run("missing directory", func(t *testing.T) {
		_, err := WriteSampleDocuments(filepath.Join(dir, "nope"))
		assert.Error(t, err)
	})

	t.Run("fill both upload inputs", func(t *testing.T) {
		app := newFakeApp()
		app.show(stageBusiness)
		res := BusinessRegistration(newTestRunner(t, testWizardConfig(), false), paths).Run(context.Background(), app.d, testIdentity)
		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{paths[0]}, app.uploads[0].Files)
		assert.Equal(t, []string{paths[1]}, app.uploads[1].Files)
	})
}
