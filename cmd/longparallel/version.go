package main

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/longparallel/version"
)

var versionCommand = command{
	name:    "version",
	usage:   "[flags]",
	summary: "Print build information.",
	setup: func(*pflag.FlagSet) runFunc {
		return func(_ context.Context, a *app, _ []string) error {
			return a.out.Print(versionRow(version.Get()))
		}
	},
}

type versionRow version.Info

func (r versionRow) columns() []string {
	info := version.Info(r)
	cols := []string{info.String(), info.GoVersion}
	if !info.BuildTime.IsZero() {
		cols = append(cols, info.BuildTime.Format(time.RFC3339))
	}
	return cols
}
