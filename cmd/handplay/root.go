package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ayusman/handplay/internal/config"
	"github.com/ayusman/handplay/internal/observability"
)

// configKeyAnnotation marks a flag as an override for a config key.
const configKeyAnnotation = "handplay_config_key"

// runtime is the state shared by every subcommand once the root has loaded
// the configuration.
type runtime struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{v: viper.New()}
	config.SetDefaults(rt.v)

	root := &cobra.Command{
		Use:           "handplay",
		Short:         "Control video playback with hand gestures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(rt.v, cmd); err != nil {
				return err
			}
			if err := initializeConfig(rt.v, rt.cfgFile); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(rt.v)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = observability.InitializeLogger(cfg.Logger)
			rt.logger.Info("starting handplay",
				zap.String("command", cmd.Name()),
				zap.String("config", rt.v.ConfigFileUsed()),
			)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&rt.cfgFile, "config", "c", "", "config file (default is ./handplay.yaml or ~/.handplay/handplay.yaml)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	annotate(root.PersistentFlags(), "log-level", "logger.level")

	root.AddCommand(
		newPlayerCmd(rt),
		newControllerCmd(rt),
		newStandaloneCmd(rt),
	)
	return root
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(config.DataDir())
		v.SetConfigName("handplay")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file %s: %w", filepath.Base(v.ConfigFileUsed()), err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}

// annotate ties flag name to a config key.
func annotate(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// bindFlags binds the annotated flags of cmd and its parents to their config
// keys. Only the running command is bound, so subcommands can share keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || !f.Changed {
			return
		}
		if err := v.BindPFlag(keys[0], f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
