package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fluxdec/fluxdec/config"
)

var logger zerolog.Logger

var (
	conf        *config.Config
	configFile  string
	profileName string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "fluxdec",
	Short: "Decode floppy disk flux captures into sectors",
	Long: "fluxdec decodes raw flux-transition captures into sector data: PLL clock\n" +
		"recovery, FM/MFM sector parsing, multi-revolution merging and encoding\n" +
		"detection.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
		if !verbose {
			logger = logger.Level(zerolog.InfoLevel)
		}

		var err error
		if configFile != "" {
			conf, err = config.LoadFile(configFile)
		} else {
			conf, err = config.Initialize()
		}
		if err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: the per-user config, created on first run)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "decode profile from the config file (default: config's default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
