package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hipsterbrown/chassis-comm/commdev"
)

var (
	sendType     string
	sendID       int
	sendFC       string
	sendPayload  string
	sendPriority string
	sendTimeout  time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one request and print the response",
	Long: `Send a request to a device and print the completion code and payload.

For server requests --payload carries the complete console frame and --fc
is ignored. For every other type the request is built from --fc and
--payload.

Device types: fan, psu, power, server, bladeconsole, serialconsole,
watchdog, statusled, rearled, powerswitch, fancage, eeprom.

Examples:
  # Read fan 2 speed
  chassisctl send --type fan --id 2 --fc 0x01

  # Set fan 1 to 80 percent at system priority
  chassisctl send --type fan --id 1 --fc 0x02 --payload 50 --priority system

  # Read 16 bytes of FRU EEPROM at offset 0
  chassisctl send --type eeprom --id 1 --fc 0x01 --payload 00001000`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendType, "type", "t", "", "device type")
	sendCmd.Flags().IntVarP(&sendID, "id", "i", 1, "device id")
	sendCmd.Flags().StringVarP(&sendFC, "fc", "f", "0", "function code")
	sendCmd.Flags().StringVarP(&sendPayload, "payload", "p", "", "payload as hex")
	sendCmd.Flags().StringVar(&sendPriority, "priority", "user", "queue priority (system|user)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "how long to wait for the response")

	sendCmd.MarkFlagRequired("type")
}

func runSend(cmd *cobra.Command, args []string) error {
	t, err := commdev.ParseDeviceType(sendType)
	if err != nil {
		return err
	}
	prio, err := commdev.ParsePriority(sendPriority)
	if err != nil {
		return err
	}
	payload, err := hex.DecodeString(strings.ReplaceAll(sendPayload, " ", ""))
	if err != nil {
		return fmt.Errorf("--payload: %w", err)
	}

	req := payload
	if t != commdev.Server {
		fc, err := strconv.ParseUint(sendFC, 0, 8)
		if err != nil {
			return fmt.Errorf("--fc: %w", err)
		}
		req = commdev.NewRequest(byte(fc), payload)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	d, err := openDispatcher(ctx)
	if err != nil {
		return err
	}

	resp := d.SendReceive(ctx, prio, t, sendID, req)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %s\n", t, sendID, resp.Code())
	if p := resp.Payload(); len(p) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "payload: % X\n", p)
	}
	return nil
}
