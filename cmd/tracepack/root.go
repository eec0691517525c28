package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrhapile/tracepack/pkg/config"
	"github.com/mrhapile/tracepack/pkg/report"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"

	// Global flags
	verbose   bool
	outputFmt string

	format report.Format
)

var rootCmd = &cobra.Command{
	Use:   "tracepack",
	Short: "Shrink a Python runtime bundle to the files an application used",
	Long: `tracepack reads the trace recorded while running an application and
rewrites the package archives it loaded into a single minimal bundle.

Get started:
  tracepack bundle --trace trace.json numpy.whl app.zip
  tracepack strip ./site-packages`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLog(verbose)
		var err error
		format, err = report.ParseFormat(outputFmt)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "format", "f", "table",
		"report format: table, json, yaml")

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	_ = viper.BindEnv("log_format") // TRACEPACK_LOG_FORMAT
	_ = viper.BindEnv("log_level")  // TRACEPACK_LOG_LEVEL
	_ = viper.BindEnv("output")     // TRACEPACK_OUTPUT

	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(stripCmd)
}
