package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Shobayosamuel/cloudbox-go/internal/transfer"
	"github.com/Shobayosamuel/cloudbox-go/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and upload new files",
		Long:  "Watches a directory (non-recursive) and uploads files once they stop changing. Runs until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	if _, ok := app.store.Pair(); !ok {
		return fmt.Errorf("not logged in")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(app.transfers, app.logger, 0)

	w.OnResult(func(result *transfer.BatchResult) {
		for _, item := range result.Uploaded {
			statusf(flagQuiet, "uploaded %s (%s)\n", item.FileName, formatSize(item.FileSize))
		}

		for _, fail := range result.Failed {
			statusf(flagQuiet, "failed %s: %v\n", fail.Name, fail.Err)
		}
	})

	statusf(flagQuiet, "Watching %s (Ctrl-C to stop)\n", args[0])

	return w.Run(ctx, args[0])
}
