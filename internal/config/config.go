// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Form() FormConfig
	Wizard() WizardConfig
	Mailbox() MailboxConfig

	SetBrowserHeadless(bool)
	SetMailboxMode(string)
	SetWizardDocuments([]string)
	SetWizardRegistrationURL(string)
}

// Config is the root configuration object.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	FormCfg    FormConfig    `mapstructure:"form" yaml:"form"`
	WizardCfg  WizardConfig  `mapstructure:"wizard" yaml:"wizard"`
	MailboxCfg MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Form() FormConfig       { return c.FormCfg }
func (c *Config) Wizard() WizardConfig   { return c.WizardCfg }
func (c *Config) Mailbox() MailboxConfig { return c.MailboxCfg }

func (c *Config) SetBrowserHeadless(b bool)         { c.BrowserCfg.Headless = b }
func (c *Config) SetMailboxMode(m string)           { c.MailboxCfg.Mode = m }
func (c *Config) SetWizardDocuments(docs []string)  { c.WizardCfg.Documents = docs }
func (c *Config) SetWizardRegistrationURL(u string) { c.WizardCfg.RegistrationURL = u }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	Format      string      `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size" validate:"gte=0"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age" validate:"gte=0"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome instance driven by chromedp.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	DisableGPU        bool          `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width" validate:"gt=0"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height" validate:"gt=0"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout" validate:"gt=0"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// FormConfig tunes element lookup and field filling.
type FormConfig struct {
	// ElementTimeout bounds each candidate locator attempt.
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout" validate:"gt=0"`
	// OptionsTimeout bounds the wait for dropdown options to render.
	OptionsTimeout time.Duration `mapstructure:"options_timeout" yaml:"options_timeout" validate:"gt=0"`
	// StrictReadback turns a post-fallback value mismatch into a failure.
	StrictReadback bool `mapstructure:"strict_readback" yaml:"strict_readback"`
}

// WizardConfig describes the target application and step pacing.
type WizardConfig struct {
	RegistrationURL    string        `mapstructure:"registration_url" yaml:"registration_url" validate:"required,url"`
	StepTimeout        time.Duration `mapstructure:"step_timeout" yaml:"step_timeout" validate:"gt=0"`
	StepRetries        int           `mapstructure:"step_retries" yaml:"step_retries" validate:"min=1,max=10"`
	ReloadOnRetry      bool          `mapstructure:"reload_on_retry" yaml:"reload_on_retry"`
	TransitionAttempts int           `mapstructure:"transition_attempts" yaml:"transition_attempts" validate:"min=1"`
	TransitionDelay    time.Duration `mapstructure:"transition_delay" yaml:"transition_delay" validate:"gte=0"`
	SnapshotLimit      int           `mapstructure:"snapshot_limit" yaml:"snapshot_limit" validate:"gte=0"`
	EmailDomain        string        `mapstructure:"email_domain" yaml:"email_domain" validate:"required,fqdn"`
	Documents          []string      `mapstructure:"documents" yaml:"documents"`
}

// MailboxConfig selects and configures the OTP retrieval binding.
type MailboxConfig struct {
	Mode         string         `mapstructure:"mode" yaml:"mode" validate:"oneof=webui api imap"`
	PollAttempts int            `mapstructure:"poll_attempts" yaml:"poll_attempts" validate:"min=1"`
	PollDelay    time.Duration  `mapstructure:"poll_delay" yaml:"poll_delay" validate:"gte=0"`
	Web          WebInboxConfig `mapstructure:"web" yaml:"web"`
	API          MailAPIConfig  `mapstructure:"api" yaml:"api"`
	IMAP         IMAPConfig     `mapstructure:"imap" yaml:"imap"`
}

// WebInboxConfig drives the provider's public inbox page in a second window.
type WebInboxConfig struct {
	// InboxURL is a format string taking the mailbox local part.
	InboxURL      string `mapstructure:"inbox_url" yaml:"inbox_url" validate:"required"`
	RowSelector   string `mapstructure:"row_selector" yaml:"row_selector" validate:"required"`
	FrameSelector string `mapstructure:"frame_selector" yaml:"frame_selector"`
	BodySelector  string `mapstructure:"body_selector" yaml:"body_selector" validate:"required"`
}

// MailAPIConfig is the provider's HTTP API.
type MailAPIConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Domain            string        `mapstructure:"domain" yaml:"domain" validate:"required"`
	Token             string        `mapstructure:"token" yaml:"token"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" yaml:"burst" validate:"min=1"`
}

// IMAPConfig is used when codes are delivered to a private mail server.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	UseTLS   bool   `mapstructure:"use_tls" yaml:"use_tls"`
	Folder   string `mapstructure:"folder" yaml:"folder"`
	// Timeout bounds the dial, the greeting and each command.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

// EnvPrefix and EnvKeyReplacer map config keys to environment variables,
// so mailbox.api.token is read from REGWIZARD_MAILBOX_API_TOKEN.
const EnvPrefix = "REGWIZARD"

var EnvKeyReplacer = strings.NewReplacer(".", "_")

// SetDefaults registers every default with the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "regwizard")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.debug", false)

	// -- Form --
	v.SetDefault("form.element_timeout", "5s")
	v.SetDefault("form.options_timeout", "5s")
	v.SetDefault("form.strict_readback", false)

	// -- Wizard --
	v.SetDefault("wizard.registration_url", "https://authorized-partner.netlify.app/register")
	v.SetDefault("wizard.step_timeout", "40s")
	v.SetDefault("wizard.step_retries", 3)
	v.SetDefault("wizard.reload_on_retry", true)
	v.SetDefault("wizard.transition_attempts", 20)
	v.SetDefault("wizard.transition_delay", "1500ms")
	v.SetDefault("wizard.snapshot_limit", 500)
	v.SetDefault("wizard.email_domain", "mailinator.com")
	v.SetDefault("wizard.documents", []string{})

	// -- Mailbox --
	v.SetDefault("mailbox.mode", "api")
	v.SetDefault("mailbox.poll_attempts", 18)
	v.SetDefault("mailbox.poll_delay", "5s")
	v.SetDefault("mailbox.web.inbox_url", "https://www.mailinator.com/v4/public/inboxes.jsp?to=%s")
	v.SetDefault("mailbox.web.row_selector", "table tbody tr[ng-repeat], table tbody tr[onclick]")
	v.SetDefault("mailbox.web.frame_selector", "iframe#html_msg_body")
	v.SetDefault("mailbox.web.body_selector", "body")
	v.SetDefault("mailbox.api.base_url", "https://mailinator.com/api/v2")
	v.SetDefault("mailbox.api.domain", "public/mailinator.com")
	v.SetDefault("mailbox.api.token", "")
	v.SetDefault("mailbox.api.timeout", "15s")
	v.SetDefault("mailbox.api.requests_per_second", 1.0)
	v.SetDefault("mailbox.api.burst", 2)
	v.SetDefault("mailbox.imap.host", "")
	v.SetDefault("mailbox.imap.port", 993)
	v.SetDefault("mailbox.imap.username", "")
	v.SetDefault("mailbox.imap.password", "")
	v.SetDefault("mailbox.imap.use_tls", true)
	v.SetDefault("mailbox.imap.folder", "INBOX")
	v.SetDefault("mailbox.imap.timeout", "30s")
}

// NewDefaultConfig returns a configuration populated only from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults are static; an unmarshal failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper unmarshals, expands and validates the configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("mailbox.api.token", "REGWIZARD_MAILBOX_API_TOKEN")
	_ = v.BindEnv("mailbox.imap.password", "REGWIZARD_MAILBOX_IMAP_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the token if Unmarshal didn't pick it up
	if cfg.MailboxCfg.Mode == "api" && cfg.MailboxCfg.API.Token == "" {
		cfg.MailboxCfg.API.Token = os.Getenv("REGWIZARD_MAILBOX_API_TOKEN")
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ExpandPaths resolves a leading ~ in document and log file paths.
func (c *Config) ExpandPaths() error {
	for i, doc := range c.WizardCfg.Documents {
		p, err := homedir.Expand(doc)
		if err != nil {
			return fmt.Errorf("wizard.documents[%d]: %w", i, err)
		}
		c.WizardCfg.Documents[i] = p
	}
	if c.LoggerCfg.LogFile != "" {
		p, err := homedir.Expand(c.LoggerCfg.LogFile)
		if err != nil {
			return fmt.Errorf("logger.log_file: %w", err)
		}
		c.LoggerCfg.LogFile = p
	}
	if c.BrowserCfg.ExecPath != "" {
		p, err := homedir.Expand(c.BrowserCfg.ExecPath)
		if err != nil {
			return fmt.Errorf("browser.exec_path: %w", err)
		}
		c.BrowserCfg.ExecPath = p
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	vd := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config keys rather than Go names.
	vd.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return vd
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed '%s' validation (value: %v)", configKey(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.MailboxCfg.Mode == "imap" {
		if c.MailboxCfg.IMAP.Host == "" || c.MailboxCfg.IMAP.Username == "" {
			return fmt.Errorf("mailbox.imap.host and mailbox.imap.username are required when mailbox.mode is imap")
		}
		if c.MailboxCfg.IMAP.Port == 0 {
			return fmt.Errorf("mailbox.imap.port must be set when mailbox.mode is imap")
		}
	}
	if c.MailboxCfg.Mode == "webui" && strings.Count(c.MailboxCfg.Web.InboxURL, "%s") != 1 {
		return fmt.Errorf("mailbox.web.inbox_url must contain exactly one %%s placeholder")
	}
	for i, doc := range c.WizardCfg.Documents {
		if _, err := os.Stat(doc); err != nil {
			return fmt.Errorf("wizard.documents[%d] is not readable: %w", i, err)
		}
	}
	return nil
}

// configKey trims the root struct name from a validator namespace, turning
// "Config.wizard.step_retries" into "wizard.step_retries".
func configKey(ns string) string {
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return ns
}
