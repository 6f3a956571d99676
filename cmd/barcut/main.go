// BarCut - one-dimensional cutting stock optimizer
//
// Packs required pieces into the fewest stock bars, then reduces the
// number of distinct cutting patterns without giving up bars.
//
// Usage:
//
//	barcut [glog flags] <command> [flags] [args]
//
// Commands:
//
//	solve    optimize a job or piece list
//	compare  run a job under several settings side by side
//	runs     list, show or delete stored runs
//	serve    start the HTTP API
//	preset   list, save or delete settings presets
//	backup   export or import config and presets
//	config   print or initialize the config file
//
// Build:
//
//	go build -o barcut ./cmd/barcut
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/engine"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{"solve", "optimize a job or piece list", runSolve},
	{"compare", "run a job under several settings side by side", runCompare},
	{"runs", "list, show or delete stored runs", runRuns},
	{"serve", "start the HTTP API", runServe},
	{"preset", "list, save or delete settings presets", runPreset},
	{"backup", "export or import config and presets", runBackup},
	{"config", "print or initialize the config file", runConfig},
}

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitConfig     = 2
	exitInfeasible = 3
	exitUnknown    = 4
)

func main() {
	flag.Usage = usage
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() == 0 {
		usage()
		os.Exit(exitConfig)
	}

	name := flag.Arg(0)
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := cmd.run(ctx, flag.Args()[1:])
		stop()
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "barcut %s: %v\n", name, err)
			glog.Flush()
			os.Exit(exitCode(err))
		}
		return
	}

	fmt.Fprintf(os.Stderr, "barcut: unknown command %q\n\n", name)
	usage()
	os.Exit(exitConfig)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: barcut [glog flags] <command> [flags] [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(out, "  %-8s %s\n", cmd.name, cmd.usage)
	}
	fmt.Fprintf(out, "\nRun 'barcut <command> -h' for command flags.\n\nGlobal flags:\n")
	flag.PrintDefaults()
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case engine.IsConfigError(err), errors.Is(err, errUsage):
		return exitConfig
	case errors.Is(err, engine.ErrInfeasible):
		return exitInfeasible
	case errors.Is(err, engine.ErrSolverUnknown):
		return exitUnknown
	default:
		return exitError
	}
}

var errUsage = errors.New("invalid usage")

func usageErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
