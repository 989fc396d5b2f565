package cmd

import (
	"log"
	"path/filepath"

	"github.com/josephlewis42/jobsh/core/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config directory with a commented default config.yaml.",
	Long: `Creates the directory given by --config and writes the default
configuration into it. An existing config.yaml is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)
		configuration, err := config.Initialize(cfgPath, logger)
		if err != nil {
			return err
		}

		logger.Printf("Edit %s to change the prompt, aliases and logging.", filepath.Join(configuration.Dir(), config.ConfigurationName))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
