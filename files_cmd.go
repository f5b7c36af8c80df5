package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Shobayosamuel/cloudbox-go/internal/api"
	"github.com/Shobayosamuel/cloudbox-go/internal/history"
	"github.com/Shobayosamuel/cloudbox-go/internal/transfer"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE:  runLs,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file-id> [target-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <path>...",
		Short: "Upload one or more files",
		Long:  "Uploads files one at a time, in order. A failed file does not stop the rest of the batch.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPut,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

// openLedger opens the transfer history ledger. History is best-effort:
// if the ledger cannot be opened the transfer proceeds without it.
func openLedger(ctx context.Context, logger *slog.Logger) *history.Ledger {
	if err := os.MkdirAll(resolvedCfg.StateDir, 0o700); err != nil {
		logger.Warn("cannot create state dir, history disabled", slog.String("error", err.Error()))
		return nil
	}

	ledger, err := history.Open(ctx, historyDBPath(), logger)
	if err != nil {
		logger.Warn("cannot open history ledger, history disabled", slog.String("error", err.Error()))
		return nil
	}

	return ledger
}

// recordHistory writes one ledger entry, logging (not failing) on error.
func recordHistory(ctx context.Context, ledger *history.Ledger, logger *slog.Logger, e history.Entry) {
	if ledger == nil {
		return
	}

	if err := ledger.Record(ctx, e); err != nil {
		logger.Warn("history record failed", slog.String("error", err.Error()))
	}
}

func parseFileID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", arg)
	}

	return id, nil
}

func runLs(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	items, err := app.transfers.List(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(items)
	}

	if len(items) == 0 {
		statusf(flagQuiet, "No files stored\n")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			it.FileName,
			formatSize(it.FileSize),
		})
	}

	printTable([]string{"ID", "NAME", "SIZE"}, rows)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	fileID, err := parseFileID(args[0])
	if err != nil {
		return err
	}

	target := ""
	if len(args) == 2 {
		target = args[1]
	}

	// Resolve the server-side file name when no target path was given.
	name := ""

	if target == "" {
		items, listErr := app.transfers.List(cmd.Context())
		if listErr != nil {
			return listErr
		}

		for _, it := range items {
			if it.ID == fileID {
				name = it.FileName
				break
			}
		}

		if name == "" {
			return fmt.Errorf("file %d not found; pass a target path to download anyway", fileID)
		}

		target = name
	} else {
		name = target
	}

	ledger := openLedger(cmd.Context(), app.logger)
	if ledger != nil {
		defer ledger.Close()
	}

	n, err := app.transfers.DownloadToFile(cmd.Context(), fileID, target)
	if err != nil {
		recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
			Op: history.OpDownload, FileName: name, FileID: fileID,
			Outcome: history.OutcomeError, Detail: err.Error(),
		})

		return err
	}

	recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
		Op: history.OpDownload, FileName: name, FileID: fileID,
		Size: n, Outcome: history.OutcomeOK,
	})

	statusf(flagQuiet, "Downloaded %s (%s)\n", target, formatSize(n))

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	sources := make([]transfer.Source, 0, len(args))

	for _, path := range args {
		// Fail fast on unreadable paths before any bytes move.
		info, statErr := os.Stat(path)
		if statErr != nil {
			return fmt.Errorf("cannot read %s: %w", path, statErr)
		}

		if info.IsDir() {
			return fmt.Errorf("%s is a directory; pass files", path)
		}

		sources = append(sources, transfer.FileSource(path))
	}

	ledger := openLedger(cmd.Context(), app.logger)
	if ledger != nil {
		defer ledger.Close()
	}

	bar := newProgressBar()

	result, err := app.transfers.Upload(cmd.Context(), sources, bar.update)

	for _, item := range result.Uploaded {
		recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
			Op: history.OpUpload, FileName: item.FileName, FileID: item.ID,
			Size: item.FileSize, Outcome: history.OutcomeOK,
		})
	}

	for _, fail := range result.Failed {
		recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
			Op: history.OpUpload, FileName: fail.Name,
			Outcome: history.OutcomeError, Detail: fail.Err.Error(),
		})
	}

	if err != nil {
		return err
	}

	statusf(flagQuiet, "Uploaded %d of %d files\n", len(result.Uploaded), len(sources))

	if len(result.Failed) > 0 {
		for _, fail := range result.Failed {
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", fail.Name, fail.Err)
		}

		return fmt.Errorf("%d of %d uploads failed", len(result.Failed), len(sources))
	}

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	fileID, err := parseFileID(args[0])
	if err != nil {
		return err
	}

	ledger := openLedger(cmd.Context(), app.logger)
	if ledger != nil {
		defer ledger.Close()
	}

	err = app.transfers.Delete(cmd.Context(), fileID)

	// Already gone counts as done: the desired end state holds.
	if errors.Is(err, api.ErrNotFound) {
		statusf(flagQuiet, "File %d already deleted\n", fileID)

		recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
			Op: history.OpDelete, FileID: fileID, Outcome: history.OutcomeOK,
			Detail: "already deleted",
		})

		return nil
	}

	if err != nil {
		recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
			Op: history.OpDelete, FileID: fileID,
			Outcome: history.OutcomeError, Detail: err.Error(),
		})

		return err
	}

	recordHistory(cmd.Context(), ledger, app.logger, history.Entry{
		Op: history.OpDelete, FileID: fileID, Outcome: history.OutcomeOK,
	})

	statusf(flagQuiet, "Deleted file %d\n", fileID)

	return nil
}
