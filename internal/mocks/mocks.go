// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
)

// -- Config Mock --

// MockConfig mocks config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Form() config.FormConfig {
	args := m.Called()
	return args.Get(0).(config.FormConfig)
}

func (m *MockConfig) Wizard() config.WizardConfig {
	args := m.Called()
	return args.Get(0).(config.WizardConfig)
}

func (m *MockConfig) Mailbox() config.MailboxConfig {
	args := m.Called()
	return args.Get(0).(config.MailboxConfig)
}

func (m *MockConfig) SetBrowserHeadless(b bool)         { m.Called(b) }
func (m *MockConfig) SetMailboxMode(mode string)        { m.Called(mode) }
func (m *MockConfig) SetWizardDocuments(docs []string)  { m.Called(docs) }
func (m *MockConfig) SetWizardRegistrationURL(u string) { m.Called(u) }

// -- Code Retriever Mock --

// MockCodeRetriever mocks the mailbox code retrieval contract.
type MockCodeRetriever struct {
	mock.Mock
}

func (m *MockCodeRetriever) RetrieveCode(ctx context.Context, mb schemas.Mailbox) (schemas.VerificationCode, error) {
	args := m.Called(ctx, mb)
	return args.Get(0).(schemas.VerificationCode), args.Error(1)
}

// -- Driver Mock --

// MockDriver mocks schemas.Driver for call-order and argument assertions.
// For behavior-driven tests prefer FakeDriver.
type MockDriver struct {
	mock.Mock
}

var _ schemas.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) Find(ctx context.Context, loc schemas.Locator, timeout time.Duration) (schemas.Element, error) {
	args := m.Called(ctx, loc, timeout)
	return args.Get(0).(schemas.Element), args.Error(1)
}

func (m *MockDriver) FindAll(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	args := m.Called(ctx, loc)
	if els, ok := args.Get(0).([]schemas.Element); ok {
		return els, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDriver) Click(ctx context.Context, el schemas.Element) error {
	return m.Called(ctx, el).Error(0)
}

func (m *MockDriver) Clear(ctx context.Context, el schemas.Element) error {
	return m.Called(ctx, el).Error(0)
}

func (m *MockDriver) Type(ctx context.Context, el schemas.Element, text string) error {
	return m.Called(ctx, el, text).Error(0)
}

func (m *MockDriver) Value(ctx context.Context, el schemas.Element) (string, error) {
	args := m.Called(ctx, el)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) SetValue(ctx context.Context, el schemas.Element, value string) error {
	return m.Called(ctx, el, value).Error(0)
}

func (m *MockDriver) Attribute(ctx context.Context, el schemas.Element, name string) (string, bool, error) {
	args := m.Called(ctx, el, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDriver) Text(ctx context.Context, el schemas.Element) (string, error) {
	args := m.Called(ctx, el)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) IsEnabled(ctx context.Context, el schemas.Element) (bool, error) {
	args := m.Called(ctx, el)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) IsSelected(ctx context.Context, el schemas.Element) (bool, error) {
	args := m.Called(ctx, el)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) ScrollIntoView(ctx context.Context, el schemas.Element) error {
	return m.Called(ctx, el).Error(0)
}

func (m *MockDriver) SetFiles(ctx context.Context, el schemas.Element, paths []string) error {
	return m.Called(ctx, el, paths).Error(0)
}

func (m *MockDriver) CallOn(ctx context.Context, el schemas.Element, fn string, res interface{}, args ...interface{}) error {
	return m.Called(ctx, el, fn, res, args).Error(0)
}

func (m *MockDriver) Evaluate(ctx context.Context, script string, res interface{}) error {
	return m.Called(ctx, script, res).Error(0)
}

func (m *MockDriver) PageSource(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) CurrentContext() schemas.ContextHandle {
	return m.Called().Get(0).(schemas.ContextHandle)
}

func (m *MockDriver) OpenWindow(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) SwitchWindow(ctx context.Context, handle string) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockDriver) CloseWindow(ctx context.Context, handle string) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockDriver) SwitchFrame(ctx context.Context, loc schemas.Locator) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockDriver) RestoreContext(ctx context.Context, h schemas.ContextHandle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
