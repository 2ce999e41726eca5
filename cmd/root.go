package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcore "github.com/burrowtool/burrow/cmd/core"
	cmdenv "github.com/burrowtool/burrow/cmd/env"
	cmdports "github.com/burrowtool/burrow/cmd/ports"
	cmdservice "github.com/burrowtool/burrow/cmd/service"
	cmdtemp "github.com/burrowtool/burrow/cmd/temp"
	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/log"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burrow",
		Short: "Burrow - development environment orchestrator",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(commandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("state-dir", "", "host state directory")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("state_dir", cmd.PersistentFlags().Lookup("state-dir"))
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("BURROW")
	viper.AutomaticEnv()

	confProvider := func() *config.Config { return conf }

	for _, c := range cmdenv.Commands(cmdenv.Handler{BaseHandler: baseHandler(confProvider)}) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(cmdtemp.Command(cmdtemp.Handler{BaseHandler: baseHandler(confProvider)}))
	cmd.AddCommand(cmdservice.Command(cmdservice.Handler{BaseHandler: baseHandler(confProvider)}))
	cmd.AddCommand(cmdports.Command(cmdports.Handler{BaseHandler: baseHandler(confProvider)}))

	return cmd
}()

func baseHandler(p func() *config.Config) cmdcore.BaseHandler {
	return cmdcore.BaseHandler{ConfProvider: p}
}

func initConfig(_ context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(conf.StateDir)
	}
	_ = viper.ReadInConfig() // optional; missing file is OK

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if conf.StopTimeoutSeconds <= 0 {
		conf.StopTimeoutSeconds = 30 //nolint:mnd
	}
	if err := conf.EnsureStateDirs(); err != nil {
		return fmt.Errorf("prepare state dir: %w", err)
	}

	log.Setup(conf.LogLevel)
	return nil
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
