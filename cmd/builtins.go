package cmd

import (
	"fmt"

	"github.com/josephlewis42/jobsh/core"
	"github.com/spf13/cobra"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List the commands the shell runs itself.",
	Long: `Builtins run inside the shell process instead of being launched as
programs. They aren't recognised as pipeline stages; run "name --help" in the
shell for the options of a builtin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, name := range core.BuiltinNames() {
			fmt.Fprintln(w, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
