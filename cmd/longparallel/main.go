// Command longparallel runs slow per-item work (hashing files, fetching
// pages, running commands) through the parallel query engine and prints
// results as they complete.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/longparallel/errors"
	"github.com/kbukum/longparallel/logger"
	"github.com/kbukum/longparallel/observability"
)

const serviceName = "longparallel"

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitCanceled = 130
)

// runFunc executes a command with its positional arguments.
type runFunc func(ctx context.Context, a *app, args []string) error

type command struct {
	name    string
	usage   string
	summary string
	// interspersed allows flags after positional arguments.
	interspersed bool
	// setup registers command flags and returns the command body.
	setup func(fs *pflag.FlagSet) runFunc
}

var commands = []command{
	digestCommand,
	titlesCommand,
	execCommand,
	versionCommand,
}

// usageError marks invalid invocations.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches args to a command. sig is done once the process is
// asked to stop; it becomes the cancellation signal of every query.
func run(sig context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	if slices.Contains([]string{"help", "-h", "--help"}, args[0]) {
		printUsage(stdout)
		return exitOK
	}

	idx := slices.IndexFunc(commands, func(c command) bool { return c.name == args[0] })
	if idx < 0 {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
	cmd := commands[idx]

	fs := pflag.NewFlagSet(serviceName+" "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(cmd.interspersed)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s %s %s\n\n%s\n\nFlags:\n", serviceName, cmd.name, cmd.usage, cmd.summary)
		fs.PrintDefaults()
	}
	global := addGlobalFlags(fs)
	body := cmd.setup(fs)

	if err := fs.Parse(args[1:]); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(fs, global)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitUsage
	}

	a, shutdown, err := newApp(sig, cfg, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitFailure
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}()

	a.log = a.log.WithFields(logger.Fields(logger.FieldOperation, cmd.name))

	ctx, op := observability.StartOperation(context.Background(), cfg.Name, cmd.name, a.metrics)
	observability.SetSpanAttribute(ctx, observability.AttrDegree, cfg.Pipeline.DegreeOfParallelism)
	observability.SetSpanAttribute(ctx, observability.AttrBuffer, cfg.Pipeline.BufferSize)
	err = body(ctx, a, fs.Args())
	if closeErr := a.out.Close(); err == nil {
		err = closeErr
	}
	op.End(ctx, err)

	if err != nil {
		a.log.Error(cmd.name+" failed", logger.MergeWithError(logger.Fields(
			logger.FieldCode, string(errors.CodeOf(err)),
			"description", errors.Describe(err),
			logger.FieldDuration, op.Duration().Milliseconds(),
		), err))
		code := exitCode(err)
		if code == exitUsage {
			fs.Usage()
		}
		return code
	}
	a.log.Debug(cmd.name+" finished", logger.DurationFields(cmd.name, op.Duration()))
	return exitOK
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitOK
	case stderrors.As(err, &ue), errors.HasCode(err, errors.ErrCodeArgumentInvalid):
		return exitUsage
	case errors.IsCancellationCode(errors.CodeOf(err)):
		return exitCanceled
	default:
		return exitFailure
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [flags] [args]\n\nCommands:\n", serviceName)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun '%s <command> --help' for command flags.\n", serviceName)
}
