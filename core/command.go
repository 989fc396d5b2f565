package core

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	getopt "github.com/pborman/getopt/v2"
)

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (c *SimpleCommand) Flags() *getopt.Set {
	if c.flags == nil {
		c.flags = getopt.New()
	}

	return c.flags
}

// PrintHelp writes help for the command to the given writer.
func (c *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, c.Use)
	fmt.Fprintln(w, c.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	c.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was succcessful call the callback with
// the remaining arguments.
func (c *SimpleCommand) Run(s *Shell, args []string, callback func(args []string) int) int {
	opts := c.Flags()

	// Add help flag if not overridden.
	if c.ShowHelp == nil {
		c.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(s.Stderr(), "%s: %s\n\n", args[0], err)
		c.PrintHelp(s.Stderr())
		return 2
	}

	if *c.ShowHelp {
		c.PrintHelp(s.Stdout())
		return 0
	}

	return callback(opts.Args())
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

type ColorPrinter struct {
	value *string
	out   io.Writer
}

// NewColorPrinter creates a printer for out using one of always, auto or
// never.
func NewColorPrinter(out io.Writer, mode string) *ColorPrinter {
	return &ColorPrinter{value: &mode, out: out}
}

// Init sets up the flag and the output stream to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, out io.Writer, defaultMode string) {
	c.out = out
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		defaultMode,
		"colorize the output (always|auto|never)")
}

func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case c.value == nil || *c.value == colorNever:
		return false
	case *c.value == colorAlways:
		return true
	default:
		f, ok := c.out.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
}

func (c *ColorPrinter) Sprintf(clr *color.Color, format string, a ...interface{}) string {
	if !c.ShouldColor() {
		return fmt.Sprintf(format, a...)
	}

	// The package level NoColor is decided by os.Stdout alone.
	forced := *clr
	forced.EnableColor()
	return forced.Sprintf(format, a...)
}
