package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Shobayosamuel/cloudbox-go/internal/api"
	"github.com/Shobayosamuel/cloudbox-go/internal/share"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Manage share links",
	}

	cmd.AddCommand(newShareCreateCmd())
	cmd.AddCommand(newShareListCmd())
	cmd.AddCommand(newShareRevokeCmd())

	return cmd
}

func newShareCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file-id>",
		Short: "Issue a share link for a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runShareCreate,
	}

	cmd.Flags().Int("expires", share.OneDay, "link lifetime in hours: 24, 72, 168, 720, or 0 (never)")

	return cmd
}

func newShareListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List issued share links",
		Args:  cobra.NoArgs,
		RunE:  runShareList,
	}
}

func newShareRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a share link",
		Args:  cobra.ExactArgs(1),
		RunE:  runShareRevoke,
	}
}

func runShareCreate(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	fileID, err := parseFileID(args[0])
	if err != nil {
		return err
	}

	expires, _ := cmd.Flags().GetInt("expires")

	link, err := app.shares.Create(cmd.Context(), fileID, expires)
	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(link)
	}

	fmt.Println(link.URL)

	if link.ExpiresInHours == share.NoExpiry {
		statusf(flagQuiet, "Link never expires\n")
	} else {
		statusf(flagQuiet, "Link expires in %d hours\n", link.ExpiresInHours)
	}

	return nil
}

func runShareList(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	links, err := app.shares.List(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(links)
	}

	if len(links) == 0 {
		statusf(flagQuiet, "No share links issued\n")
		return nil
	}

	rows := make([][]string, 0, len(links))

	for _, l := range links {
		expiry := "never"
		if l.ExpiresInHours != share.NoExpiry {
			expiry = strconv.Itoa(l.ExpiresInHours) + "h"
		}

		rows = append(rows, []string{l.Token, expiry, l.URL})
	}

	printTable([]string{"TOKEN", "EXPIRES", "URL"}, rows)

	return nil
}

func runShareRevoke(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	token := args[0]

	err = app.shares.Revoke(cmd.Context(), token)

	// An unknown token means the link is already dead, which is the goal.
	if errors.Is(err, api.ErrNotFound) {
		statusf(flagQuiet, "Share link already revoked\n")
		return nil
	}

	if err != nil {
		return err
	}

	statusf(flagQuiet, "Revoked share link %s\n", token)

	return nil
}
