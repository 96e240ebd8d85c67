package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/goliatone/go-vocabsheets/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// version is set at build time with -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "vocabsheets",
	Short: "Build printable vocabulary sheets",
	Long: `vocabsheets turns comma separated words and images into A4 sheets of
eight cards each and exports them as a single PDF document.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "vocabsheets %s\n", version)
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", info.GoVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)

	// If no command is specified, default to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if verbose {
		cfg.Log.Debug = true
	}
	return cfg, cfg.Validate()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
