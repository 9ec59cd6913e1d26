package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blerpc/pkg/services"
)

// heartRateCmd represents the heart-rate command
var heartRateCmd = &cobra.Command{
	Use:   "heart-rate <device-address>",
	Short: "Stream heart rate measurements",
	Long: fmt.Sprintf(`Subscribes to the Heart Rate Measurement characteristic (service 180D,
characteristic 2A37) and prints every measurement.

Examples:
  # Stream until Ctrl+C
  blerpc heart-rate %s

  # Print 10 measurements and exit
  blerpc heart-rate %s --count 10

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(1),
	RunE: runHeartRate,
}

var heartRateCount int

func init() {
	heartRateCmd.Flags().IntVar(&heartRateCount, "count", 0, "Number of measurements to print (0 = until interrupted)")
}

// formatHeartRate renders one measurement as "72 bpm" plus sensor notes
func formatHeartRate(m services.HeartRateMeasurement) string {
	var notes []string
	if m.Flags&services.HeartRateContactSupport != 0 {
		if m.ContactDetected() {
			notes = append(notes, "contact")
		} else {
			notes = append(notes, "no contact")
		}
	}
	if m.Flags&services.HeartRateFormat16Bit != 0 {
		notes = append(notes, "16-bit value truncated")
	}

	line := fmt.Sprintf("%d bpm", m.BPM)
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, ", ") + ")"
	}
	return line
}

// printHeartRate writes one measurement line
func printHeartRate(w io.Writer, m services.HeartRateMeasurement) {
	fmt.Fprint(w, "Heart rate: ")
	color.New(color.FgRed, color.Bold).Fprintln(w, formatHeartRate(m))
}

func runHeartRate(cmd *cobra.Command, args []string) error {
	address := args[0]
	if heartRateCount < 0 {
		return fmt.Errorf("--count must be >= 0, got %d", heartRateCount)
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

	buf, err := NewNotificationBuffer[services.HeartRateMeasurement](s.cfg.NotificationBuffer)
	if err != nil {
		return err
	}
	defer logDropped(s.logger, buf)

	progress, stopProgress := startProgress(fmt.Sprintf("Subscribing to heart rate of %s", address), "connecting")
	defer stopProgress()

	client := services.NewHeartRateClient(s.registry.Channel(address))
	sub := client.SubscribeMeasurement(ctx, func(m *services.HeartRateMeasurement) {
		if err := buf.Push(*m); err != nil {
			s.logger.WithError(err).Error("Failed to buffer heart rate measurement")
		}
	})
	defer sub.Cancel()

	out := cmd.OutOrStdout()
	_, err = streamUpdates(ctx, sub, buf, streamOptions{
		Limit:            heartRateCount,
		SubscribeTimeout: s.callTimeout(),
		OnSubscribed: func() {
			progress.SetPhase("subscribed")
			stopProgress()
		},
	}, func(m services.HeartRateMeasurement) {
		printHeartRate(out, m)
	})
	return err
}
