package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blerpc/pkg/services"
)

// alertCmd represents the alert command
var alertCmd = &cobra.Command{
	Use:   "alert <device-address> <none|mild|high>",
	Short: "Make a device raise an alert",
	Long: fmt.Sprintf(`Writes the Alert Level characteristic of the Immediate Alert service
(service 1802, characteristic 2A06).

Examples:
  # Make the device beep or blink
  blerpc alert %s high

  # Silence it
  blerpc alert %s none

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(2),
	RunE: runAlert,
}

func runAlert(cmd *cobra.Command, args []string) error {
	address := args[0]
	level, err := services.ParseAlertLevel(args[1])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := interruptContext(cmd)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout())
	defer cancel()

	_, stopProgress := startProgress(fmt.Sprintf("Setting alert level on %s", address), "connecting")
	client := services.NewImmediateAlertClient(s.registry.Channel(address))
	err = client.SetLevel(ctx, level)
	stopProgress()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), "Alert level set to ")
	color.New(color.Bold).Fprintln(cmd.OutOrStdout(), level)
	return nil
}
