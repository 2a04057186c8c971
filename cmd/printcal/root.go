package main

import (
	"github.com/spf13/cobra"

	"printcal/internal/config"
	appLog "printcal/internal/log"
)

const defaultConfigPath = "./config.yaml"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "printcal",
		Short:         "Printable monthly and weekly calendars",
		Long:          "Builds printable monthly or weekly calendar pages, overlays events from an ICS feed and exports them as HTML or PDF.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "Path to config file (created with defaults if missing)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newServeCmd(g), newRenderCmd(g), newVersionCmd())
	return root
}

// loadConfig loads the config file and sets up logging from it.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", g.configPath)
		return nil, err
	}

	level := appLog.ParseLevel(cfg.Log.Level)
	if g.debug {
		level = appLog.LevelDebug
	}
	appLog.Configure(appLog.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	return cfg, nil
}
