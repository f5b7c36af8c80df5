package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogin,
	}

	cmd.Flags().String("password", "", "password (prompted when omitted)")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(2),
		RunE:  runRegister,
	}

	cmd.Flags().String("password", "", "password (prompted when omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

// readPassword returns the --password flag value, or prompts on stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	user, err := app.client.Login(cmd.Context(), args[0], password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// Cache profile fields so whoami can answer without a network call.
	app.store.SetMeta(map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})

	statusf(flagQuiet, "Logged in as %s\n", user.Username)

	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	username, email := args[0], args[1]

	if err := app.client.Register(cmd.Context(), username, email, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	// Registration does not issue tokens; sign in right away.
	user, err := app.client.Login(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("registered, but login failed: %w", err)
	}

	app.store.SetMeta(map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})

	statusf(flagQuiet, "Registered and logged in as %s\n", user.Username)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	if _, ok := app.store.Pair(); !ok {
		statusf(flagQuiet, "Already logged out\n")
		return nil
	}

	// If a token refresh is racing this logout, the refresh completes but
	// its result is dropped (session.Store.Replace compares pairs), so the
	// store stays cleared.
	app.store.Clear()

	statusf(flagQuiet, "Logged out\n")

	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	if _, ok := app.store.Pair(); !ok {
		return fmt.Errorf("not logged in")
	}

	user, err := app.client.Profile(cmd.Context())
	if err != nil {
		return err
	}

	app.store.SetMeta(map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(user)
	}

	fmt.Printf("%s <%s>\n", user.Username, user.Email)

	if user.LastLogin != "" {
		fmt.Printf("Last login: %s\n", user.LastLogin)
	}

	return nil
}
