package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blerpc",
	Short: "RPC over Bluetooth Low Energy GATT",
	Long: `Calls remote procedures on Bluetooth Low Energy (BLE) peripherals.

Every procedure maps onto one GATT characteristic:

- READ methods read the characteristic and decode the response message
- WRITE methods encode the request message and write it
- SUBSCRIBE methods stream decoded notifications until interrupted

Messages are fixed-size binary structs; see 'blerpc methods' for what is available.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("blerpc %s (commit %s, built %s)\n", formatVersion(version), commit, date))

	rootCmd.AddCommand(batteryCmd)
	rootCmd.AddCommand(heartRateCmd)
	rootCmd.AddCommand(alertCmd)
	rootCmd.AddCommand(methodsCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging (same as --log-level debug)")
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("byte-order", "", "Message byte order: big or little (overrides config)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Connect and call timeout (overrides config connect_timeout)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
