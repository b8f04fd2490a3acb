// picoboard runs the board images on a Linux host with an I2C bus, such as a Raspberry Pi: the same drivers and run
// loop as the TinyGo firmware, with stdout standing in for the USB serial line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootOpts = struct {
		config   string
		logLevel string
		env      string
	}{}

	rootCmd = &cobra.Command{
		Use:           "picoboard",
		Short:         "Run the sensor board images on a host",
		Long:          "Sample a peripheral once per interval and write one text line per sample to the configured sinks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.config, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.env, "env", "", "override env (dev, prod)")

	rootCmd.AddCommand(echoCmd, clockCmd, oledCmd, tempHumCmd, weatherCmd, luxCmd, consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "picoboard:", err)
		os.Exit(1)
	}
}
