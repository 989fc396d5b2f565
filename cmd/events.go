package cmd

import (
	"fmt"

	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the job events recorded by past sessions.",
}

var eventsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize started, stopped and finished jobs.",
	Long: `Reads the log named by event_log in the configuration and prints event
counts per session, type and command, along with the exit statuses of
finished jobs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		report, err := readReport(configuration)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func readReport(configuration *config.Configuration) (*logger.Report, error) {
	fd, err := configuration.ReadEventLog()
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	report := logger.NewReport()
	if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
		return nil, err
	}
	return report, nil
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsReportCmd)
}
