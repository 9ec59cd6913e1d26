package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blerpc/pkg/services"
)

// batteryCmd represents the battery command
var batteryCmd = &cobra.Command{
	Use:   "battery <device-address>",
	Short: "Read the battery level",
	Long: fmt.Sprintf(`Reads the Battery Level characteristic (service 180F, characteristic 2A19).

Examples:
  # Read the battery level once
  blerpc battery %s

  # Print every battery level notification until Ctrl+C
  blerpc battery %s --watch

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(1),
	RunE: runBattery,
}

var batteryWatch bool

func init() {
	batteryCmd.Flags().BoolVar(&batteryWatch, "watch", false, "Subscribe and print every level change until interrupted")
}

// levelColor picks green, yellow or red by charge
func levelColor(percent uint8) *color.Color {
	switch {
	case percent > 50:
		return color.New(color.FgGreen)
	case percent > 20:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// printBatteryLevel writes one level line
func printBatteryLevel(w io.Writer, level services.BatteryLevel) {
	fmt.Fprint(w, "Battery level: ")
	levelColor(level.Percent).Fprintf(w, "%d%%", level.Percent)
	fmt.Fprintln(w)
}

func runBattery(cmd *cobra.Command, args []string) error {
	address := args[0]

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := interruptContext(cmd)
	defer stop()

	client := services.NewBatteryClient(s.registry.Channel(address))
	out := cmd.OutOrStdout()

	if !batteryWatch {
		_, stopProgress := startProgress(fmt.Sprintf("Reading battery level of %s", address), "connecting")
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout())
		defer cancel()

		level, err := client.ReadLevel(callCtx)
		stopProgress()
		if err != nil {
			return err
		}
		printBatteryLevel(out, *level)
		return nil
	}

	buf, err := NewNotificationBuffer[services.BatteryLevel](s.cfg.NotificationBuffer)
	if err != nil {
		return err
	}
	defer logDropped(s.logger, buf)

	progress, stopProgress := startProgress(fmt.Sprintf("Subscribing to battery level of %s", address), "connecting")
	defer stopProgress()

	sub := client.SubscribeLevel(ctx, func(level *services.BatteryLevel) {
		if err := buf.Push(*level); err != nil {
			s.logger.WithError(err).Error("Failed to buffer battery level")
		}
	})
	defer sub.Cancel()

	_, err = streamUpdates(ctx, sub, buf, streamOptions{
		SubscribeTimeout: s.callTimeout(),
		OnSubscribed: func() {
			progress.SetPhase("subscribed")
			stopProgress()
			fmt.Fprintf(out, "Watching battery level of %s (Ctrl+C to stop)\n", address)
		},
	}, func(level services.BatteryLevel) {
		printBatteryLevel(out, level)
	})
	return err
}
