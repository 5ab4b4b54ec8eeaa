package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maxiofs/kvctl/internal/codec"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var errNoCommand = errors.New("a command is required, see kvctl --help")

// app carries the process streams so commands can be driven from tests.
type app struct {
	in          io.Reader
	out         io.Writer
	interactive func() bool
}

func newApp() *app {
	return &app{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: stdinIsTerminal,
	}
}

func main() {
	a := newApp()
	rootCmd := a.rootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "kvctl",
		Short: "kvctl - command line access to an on-disk key/value store",
		Long: `kvctl reads, writes, deletes and lists keys of a local ordered key/value
store (Pebble, Badger or bbolt) from the command line.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errNoCommand
		},
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetIn(a.in)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("db", "d", ".", "Store directory")
	rootCmd.PersistentFlags().StringP("encoding", "e", codec.DefaultEncoding, fmt.Sprintf("Value encoding %v", codec.Names()))
	rootCmd.PersistentFlags().StringP("engine", "", "auto", "Storage engine (auto, pebble, badger, bolt)")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Create a missing store without asking")
	rootCmd.PersistentFlags().StringP("log-level", "", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("metrics-file", "", "", "Write operation metrics to this Prometheus textfile")

	rootCmd.AddCommand(
		a.getCommand(),
		a.putCommand(),
		a.delCommand(),
		a.listCommand(),
		a.copyCommand(),
	)

	return rootCmd
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
