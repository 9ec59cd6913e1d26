package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blerpc/pkg/device"
	"github.com/srg/blerpc/pkg/rpc"
	"github.com/srg/blerpc/pkg/services"
	"github.com/srg/blerpc/pkg/wire"
)

// methodsCmd represents the methods command
var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the built-in remote methods",
	Long: `Lists every built-in method with its GATT mapping and message sizes.

Examples:
  blerpc methods
  blerpc methods --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if methodsJSON {
			return printMethodsJSON(cmd.OutOrStdout(), services.All())
		}
		return printMethods(cmd.OutOrStdout(), services.All())
	},
}

var methodsJSON bool

func init() {
	methodsCmd.Flags().BoolVar(&methodsJSON, "json", false, "Output as JSON")
}

// methodInfo is the JSON form of one method
type methodInfo struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Service        string `json:"service"`
	Characteristic string `json:"characteristic"`
	Descriptor     string `json:"descriptor,omitempty"`
	Size           int    `json:"size"`
}

// messageSize returns the declared size of the message m carries, or -1
func messageSize(m *rpc.Method) (int, error) {
	msg, ok := methodMessages[m]
	if !ok {
		return -1, nil
	}
	layout, err := wire.LayoutOf(msg)
	if err != nil {
		return 0, fmt.Errorf("method %s: %w", m.Name, err)
	}
	return layout.Size, nil
}

var methodTypeColors = map[rpc.MethodType]color.Attribute{
	rpc.MethodRead:      color.FgGreen,
	rpc.MethodWrite:     color.FgYellow,
	rpc.MethodSubscribe: color.FgCyan,
}

// methodMessages maps each built-in method to the message it carries
var methodMessages = map[*rpc.Method]any{
	services.BatteryReadLevel:              services.BatteryLevel{},
	services.BatterySubscribeLevel:         services.BatteryLevel{},
	services.HeartRateSubscribeMeasurement: services.HeartRateMeasurement{},
	services.ImmediateAlertSetLevel:        services.Alert{},
}

func printMethods(w io.Writer, methods []*rpc.Method) error {
	for _, m := range methods {
		n, err := messageSize(m)
		if err != nil {
			return err
		}
		size := "-"
		if n >= 0 {
			size = fmt.Sprintf("%d bytes", n)
		}

		fmt.Fprintf(w, "%-34s ", m.Name)
		color.New(methodTypeColors[m.Type]).Fprintf(w, "%-10s", m.Type)
		fmt.Fprintf(w, " %s/%s  %s\n", device.UUIDKey(m.Service), device.UUIDKey(m.Characteristic), size)
	}
	return nil
}

func printMethodsJSON(w io.Writer, methods []*rpc.Method) error {
	infos := make([]methodInfo, 0, len(methods))
	for _, m := range methods {
		n, err := messageSize(m)
		if err != nil {
			return err
		}
		infos = append(infos, methodInfo{
			Name:           m.Name,
			Type:           m.Type.String(),
			Service:        device.UUIDKey(m.Service),
			Characteristic: device.UUIDKey(m.Characteristic),
			Descriptor:     device.UUIDKey(m.Descriptor),
			Size:           n,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infos)
}
