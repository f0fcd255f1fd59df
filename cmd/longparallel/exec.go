package main

import (
	"context"
	stderrors "errors"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/longparallel/pipeline"
	"github.com/kbukum/longparallel/process"
)

var execCommand = command{
	name:    "exec",
	usage:   "[flags] [--] command [args...]",
	summary: "Run a command once per stdin line, with the line appended as last argument.",
	setup: func(fs *pflag.FlagSet) runFunc {
		keepGoing := fs.Bool("keep-going", false, "report non-zero exits as rows instead of failing")
		timeout := fs.Duration("timeout", 0, "per-command timeout (default from config)")
		return func(ctx context.Context, a *app, args []string) error {
			if len(args) == 0 {
				return usagef("exec: missing command")
			}
			cfg := a.cfg.Exec
			if *timeout > 0 {
				cfg.Timeout = *timeout
			}
			return runExec(ctx, a, args, process.NewRunner(cfg), *keepGoing)
		}
	},
}

type execRow struct {
	Item       string `json:"item" yaml:"item"`
	ExitCode   int    `json:"exit_code" yaml:"exit_code"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
	Output     string `json:"output" yaml:"output"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r execRow) columns() []string {
	return []string{strconv.Itoa(r.ExitCode), strconv.FormatInt(r.DurationMs, 10), r.Item, r.Output}
}

func runExec(ctx context.Context, a *app, argv []string, runner *process.Runner, keepGoing bool) error {
	root, err := query(a, lines(a.stdin))
	if err != nil {
		return err
	}
	runs, err := pipeline.Select(root, func(ctx context.Context, item string) (execRow, error) {
		res, err := runner.Run(ctx, process.Command{
			Binary: argv[0],
			Args:   slices.Concat(argv[1:], []string{item}),
		})
		var exitErr *process.ExitError
		if err != nil && !(keepGoing && stderrors.As(err, &exitErr)) {
			return execRow{}, err
		}
		row := execRow{
			Item:       item,
			ExitCode:   res.ExitCode,
			DurationMs: res.Duration.Milliseconds(),
			Output:     strings.TrimSpace(string(res.Stdout)),
		}
		if exitErr != nil {
			row.Error = strings.TrimSpace(string(res.Stderr))
		}
		return row, nil
	})
	if err != nil {
		return err
	}
	return emit(ctx, a, runs)
}
