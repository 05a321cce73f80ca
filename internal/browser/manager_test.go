package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
)

func TestExecAllocatorOptions(t *testing.T) {
	base := config.BrowserConfig{WindowWidth: 1280, WindowHeight: 800}
	baseCount := len(execAllocatorOptions(base))

	withAll := base
	withAll.Headless = true
	withAll.DisableGPU = true
	withAll.ExecPath = "/usr/bin/chromium"
	withAll.Args = []string{"--lang=en-US", "mute-audio"}

	assert.Len(t, execAllocatorOptions(withAll), baseCount+5)
}

func TestQueryTranslation(t *testing.T) {
	s := newSession("test", config.BrowserConfig{}, zaptest.NewLogger(t), nil, func() {}, func() {})

	cases := []struct {
		loc     schemas.Locator
		all     bool
		wantSel string
	}{
		{schemas.ByID("remember"), false, `[id="remember"]`},
		{schemas.ByName("firstName"), true, `[name="firstName"]`},
		{schemas.ByCSS(".primary-btn"), false, ".primary-btn"},
		{schemas.ByXPath("//button[@type='submit']"), false, "(//button[@type='submit'])[1]"},
		{schemas.ByXPath("//li"), true, "//li"},
	}
	for _, tc := range cases {
		sel, opts, err := s.query(tc.loc, tc.all)
		require.NoError(t, err, tc.loc.String())
		assert.Equal(t, tc.wantSel, sel, tc.loc.String())
		assert.Len(t, opts, 1, "no frame is active so only the strategy option is set")
	}

	_, _, err := s.query(schemas.Locator{Kind: "shadow", Value: "x"}, false)
	assert.Error(t, err)
}

func TestCSSString(t *testing.T) {
	assert.Equal(t, `"plain"`, cssString("plain"))
	assert.Equal(t, `"say \"hi\""`, cssString(`say "hi"`))
	assert.Equal(t, `"a\\b"`, cssString(`a\b`))
}

func TestTextXPath(t *testing.T) {
	xp := textXPath("Agency Details")
	assert.Contains(t, xp, "contains(normalize-space(.), 'Agency Details')")
	assert.Contains(t, xp, "not(self::script or self::style)")

	assert.Contains(t, textXPath("Partner's Portal"), `"Partner's Portal"`)
}
