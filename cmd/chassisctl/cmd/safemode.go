package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var safemodeCmd = &cobra.Command{
	Use:   "safemode on|off|status",
	Short: "Control server safe mode",
	Long: `Enable, disable or report safe mode. While safe mode is on only blade
console requests reach the server port.

Safe mode lives in the running process, so on and off are most useful
inside "chassisctl shell".`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      runSafemode,
}

func init() {
	rootCmd.AddCommand(safemodeCmd)
}

func runSafemode(cmd *cobra.Command, args []string) error {
	d, err := openDispatcher(cmd.Context())
	if err != nil {
		return err
	}

	switch args[0] {
	case "on":
		d.EnableSafeMode()
	case "off":
		d.DisableSafeMode()
	}

	state := "off"
	if d.IsSafeMode() {
		state = "on"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "safe mode: %s\n", state)
	return nil
}
