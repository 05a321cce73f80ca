package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
)

const fixturePage = `<!doctype html>
<html><body>
<h2>Personal Details</h2>
<form>
  <input name="firstName" id="first">
  <input type="checkbox" id="remember">
  <button type="submit" id="next" disabled>Next</button>
  <div role="switch" aria-checked="false" id="toggle">Career Counseling</div>
  <input type="file" style="display:none" class="upload">
  <input type="file" style="display:none" class="upload">
</form>
<iframe id="msg" srcdoc="<p>Your code is 482913</p>"></iframe>
</body></html>`

const secondPage = `<!doctype html><html><body><h1>Inbox</h1></body></html>`

// requireChrome skips browser integration tests when no Chrome binary is
// available or -short is set.
func requireChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser integration test skipped in -short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary found on PATH")
}

func newFixture(t *testing.T) (*Session, *httptest.Server, context.Context) {
	t.Helper()
	requireChrome(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, fixturePage)
	})
	mux.HandleFunc("/inbox", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, secondPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	cfg := config.NewDefaultConfig().Browser()
	cfg.Headless = true
	s, err := Launch(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.NoError(t, s.Navigate(ctx, srv.URL))
	return s, srv, ctx
}

func TestSession_ElementInteraction(t *testing.T) {
	s, _, ctx := newFixture(t)

	field, err := s.Find(ctx, schemas.ByName("firstName"), 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, s.ScrollIntoView(ctx, field))
	require.NoError(t, s.Type(ctx, field, "Ada"))
	got, err := s.Value(ctx, field)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)

	require.NoError(t, s.Clear(ctx, field))
	require.NoError(t, s.SetValue(ctx, field, "Grace"))
	got, err = s.Value(ctx, field)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got)

	next, err := s.Find(ctx, schemas.ByXPath("//button[@type='submit']"), 5*time.Second)
	require.NoError(t, err)
	enabled, err := s.IsEnabled(ctx, next)
	require.NoError(t, err)
	assert.False(t, enabled)

	box, err := s.Find(ctx, schemas.ByID("remember"), 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Click(ctx, box))
	selected, err := s.IsSelected(ctx, box)
	require.NoError(t, err)
	assert.True(t, selected)

	toggle, err := s.Find(ctx, schemas.ByText("Career Counseling"), 5*time.Second)
	require.NoError(t, err)
	state, ok, err := s.Attribute(ctx, toggle, "aria-checked")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", state)
	_, ok, err = s.Attribute(ctx, toggle, "data-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_FindTimesOut(t *testing.T) {
	s, _, ctx := newFixture(t)

	start := time.Now()
	_, err := s.Find(ctx, schemas.ByID("does-not-exist"), 500*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSession_HiddenUploads(t *testing.T) {
	s, _, ctx := newFixture(t)

	inputs, err := s.FindAll(ctx, schemas.ByCSS("input[type='file']"))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	doc := filepath.Join(t.TempDir(), "license.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.4"), 0o600))
	require.NoError(t, s.SetFiles(ctx, inputs[0], []string{doc}))

	var count int
	require.NoError(t, s.Evaluate(ctx, `document.querySelectorAll("input[type=file]")[0].files.length`, &count))
	assert.Equal(t, 1, count)
}

func TestSession_WindowsAndFrames(t *testing.T) {
	s, srv, ctx := newFixture(t)
	origin := s.CurrentContext()

	handle, err := s.OpenWindow(ctx, srv.URL+"/inbox")
	require.NoError(t, err)
	assert.NotEqual(t, origin.Window, handle)
	assert.True(t, origin.Equal(s.CurrentContext()), "opening a window does not switch to it")

	require.NoError(t, s.SwitchWindow(ctx, handle))
	_, err = s.Find(ctx, schemas.ByText("Inbox"), 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, s.RestoreContext(ctx, origin))
	require.NoError(t, s.CloseWindow(ctx, handle))

	require.NoError(t, s.SwitchFrame(ctx, schemas.ByCSS("iframe#msg")))
	assert.Len(t, s.CurrentContext().Frames, 1)
	body, err := s.Find(ctx, schemas.ByCSS("p"), 5*time.Second)
	require.NoError(t, err)
	text, err := s.Text(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, "Your code is 482913", text)

	require.NoError(t, s.RestoreContext(ctx, origin))
	assert.True(t, origin.Equal(s.CurrentContext()))

	assert.Error(t, s.CloseWindow(ctx, origin.Window), "primary window cannot be closed")
}
