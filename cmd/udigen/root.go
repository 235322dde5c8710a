package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dqvis/udigen/udi/config"
)

var (
	configPath string
	cfg        config.Config
	log        = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "udigen [command]",
	Short: "Expand visualization query templates against dataset schemas",
	Long: `udigen binds the entity and field placeholders of query/spec templates to
the resources and columns of dataset schemas, keeping only bindings that satisfy
each template's constraints, and writes one row per binding.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
			return err
		}
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if cfg.Verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "udigen.yaml", "Path to config YAML (optional)")
	rootCmd.PersistentFlags().BoolP(config.FlagVerbose, "v", false, "Verbose mode (debug logs and expansion annotations)")
}
