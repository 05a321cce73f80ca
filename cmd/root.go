package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/observability"
)

var osExit = os.Exit

// cliState is shared by every subcommand. cfg is populated by the root
// command's PersistentPreRunE before any RunE executes.
type cliState struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{v: viper.New()}

	root := &cobra.Command{
		Use:           "regwizard",
		Short:         "Regwizard drives the partner registration wizard end to end.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := st.load(); err != nil {
				// Still give the user a logger for the failure.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "regwizard"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			observability.InitializeLogger(st.cfg.Logger())
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("config_file", st.v.ConfigFileUsed()))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&st.cfgFile, "config", "c", "", "config file (default is ./regwizard.yaml)")
	root.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	root.AddCommand(newRunCmd(st), newIdentityCmd(st), newVersionCmd())
	return root
}

// load reads the config file, if any, and the REGWIZARD_* environment.
func (st *cliState) load() error {
	v := st.v
	config.SetDefaults(v)
	if st.cfgFile != "" {
		v.SetConfigFile(st.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("regwizard")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(config.EnvKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || st.cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	st.cfg = cfg
	return nil
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		observability.Sync()
		osExit(1)
		return
	}
	observability.Sync()
}
