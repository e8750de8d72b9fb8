package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	logger     zerolog.Logger
)

func main() {
	logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	var rootCmd = &cobra.Command{
		Use:   "huelampd",
		Short: "Drives Philips Hue entertainment lights from an ambient-light harness",
		Long:  `huelampd wires a host LED harness to a Hue bridge over REST or DTLS-PSK streaming, via the configuration described in the core's external interface.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "huelampd.json", "path to the device configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(listLightsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
