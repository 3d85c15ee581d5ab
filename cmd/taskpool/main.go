package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aryankumar/taskpool/internal/cli"
	"github.com/aryankumar/taskpool/internal/util"
)

func main() {
	// First signal drains the pool, second one exits immediately
	ctx, stop := util.SetupSignalHandler(context.Background())

	err := cli.Execute(ctx)
	stop()

	if err != nil {
		slog.Error("command failed", "error", util.FriendlyError(err))
		os.Exit(1)
	}
}
