package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hipsterbrown/chassis-comm/commdev"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List logical ports and their queues",
	RunE:  runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	d, err := openDispatcher(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tROLE\tDEVICE\tSYSTEM\tUSER\tSAFE\tRUNNING")
	for _, st := range d.PortStatus() {
		dev := st.Device
		if dev == "" {
			dev = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%t\t%t\n",
			st.Port, st.Role, dev, st.Depth[commdev.System], st.Depth[commdev.User], st.SafeMode, st.Running)
	}
	fmt.Fprintf(w, "\npopulation: %d\n", d.Population())
	return w.Flush()
}
