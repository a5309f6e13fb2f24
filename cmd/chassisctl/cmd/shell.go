package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run commands against one open dispatcher",
	Long: `Read commands from standard input, one per line, and run them against a
dispatcher that stays open until end of input or "quit".

Example session:
  > safemode on
  > send --type bladeconsole --id 4 --fc 0x02 --payload 4000
  > ports
  > quit`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	if _, err := openDispatcher(cmd.Context()); err != nil {
		return err
	}
	inShell = true
	defer func() { inShell = false }()

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		line := strings.Fields(in.Text())
		if len(line) == 0 {
			continue
		}
		if line[0] == "quit" || line[0] == "exit" {
			break
		}
		if line[0] == "shell" {
			fmt.Fprintln(out, "already in shell")
			continue
		}

		resetFlags(rootCmd)
		rootCmd.SetArgs(line)
		if err := rootCmd.ExecuteContext(cmd.Context()); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
	return in.Err()
}

// resetFlags restores every flag to its default so that one line does not
// inherit values from the previous one.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
