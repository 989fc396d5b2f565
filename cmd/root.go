package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/josephlewis42/jobsh/core"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/josephlewis42/jobsh/core/proc"
	"github.com/josephlewis42/jobsh/core/term"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	command  string
	noRC     bool
	logLevel string
)

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jobsh [script]",
	Short: "A job control shell",
	Long: `An interactive shell with POSIX job control: pipelines, redirects,
background jobs and fg/bg/jobs.

With no arguments the shell reads commands from the terminal. A script file
or -c runs commands non-interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		level := configuration.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		appLogger := hclog.New(&hclog.LoggerOptions{
			Name:   "jobsh",
			Level:  hclog.LevelFromString(level),
			Output: cmd.ErrOrStderr(),
		})

		runShell(configuration, appLogger, args)
		return nil
	},
}

// runShell runs one session. Command failures are reported by the shell
// itself and never change the exit status of the program.
func runShell(configuration *config.Configuration, appLogger hclog.Logger, args []string) {
	// Job control follows the terminal, not the mode: `-c cat` on a tty
	// still has to hand the terminal to cat.
	terminal := term.New(os.Stdin, appLogger)
	if err := terminal.Init(); err != nil {
		appLogger.Warn("job control disabled", "error", err)
		terminal = term.Nop()
	}

	events := logger.NewNopLogger().NewSession()
	if fd, err := configuration.OpenEventLog(); err != nil {
		appLogger.Debug("event log not written", "error", err)
	} else {
		defer fd.Close()
		events = logger.NewJsonLinesLogRecorder(fd).NewSession()
	}
	appLogger.Debug("starting session", "session", events.SessionID(), "config", configuration.Dir(), "job_control", terminal.Interactive())

	engine := proc.NewEngine(proc.Options{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Terminal: terminal,
		Logger:   appLogger,
		Events:   events,
	})

	shell := core.NewShell(core.Options{
		Config: configuration,
		Engine: engine,
		Logger: appLogger,
	})
	defer shell.Close()

	if err := shell.LoadEnvironment(); err != nil {
		shell.Errorf("%v", err)
	}

	defer func() {
		if n := engine.Jobs.Len(); n > 0 {
			appLogger.Debug("leaving jobs behind", "jobs", n)
		}
	}()

	if !noRC {
		runRCFile(shell, configuration, appLogger)
	}

	switch {
	case command != "":
		shell.ProcessLine(command)
		engine.Reap()

	case len(args) == 1:
		fd, err := os.Open(args[0])
		if err != nil {
			shell.Errorf("%v", err)
			return
		}
		defer fd.Close()
		if err := shell.RunScript(fd); err != nil {
			shell.Errorf("%s: %v", args[0], err)
		}

	default:
		if err := shell.InitReadline(); err != nil {
			shell.Errorf("%v", err)
			return
		}
		shell.RunInteractive()
	}
}

func runRCFile(shell *core.Shell, configuration *config.Configuration, appLogger hclog.Logger) {
	fd, err := configuration.OpenRCFile()
	if err != nil {
		appLogger.Debug("rc file not loaded", "path", configuration.RCFile, "error", err)
		return
	}
	defer fd.Close()

	if err := shell.RunScript(fd); err != nil {
		shell.Errorf("%s: %v", configuration.RCFile, err)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultDir(), "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command line and exit")
	rootCmd.Flags().BoolVar(&noRC, "norc", false, "don't run the rc file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level (trace, debug, info, warn, error, off)")
}
