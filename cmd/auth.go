package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gdrive-transfer/internal/config"
	"gdrive-transfer/internal/google/auth"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var resetYes bool

var labelStyle = lipgloss.NewStyle().Bold(true)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Google Drive and show the stored credential",
	Long: `Make sure a usable credential exists for the configured scopes. A valid stored
token is reused, an expired one is refreshed, and otherwise the browser consent
flow runs. The resulting token is written to the token file.`,
	Args: cobra.NoArgs,
	RunE: runAuthCommand,
}

var authResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored token so the next run asks for consent again",
	Args:  cobra.NoArgs,
	RunE:  runAuthResetCommand,
}

// isInteractive and confirmReset are swapped out in tests.
var (
	isInteractive = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	}
	confirmReset = func(path string) (bool, error) {
		var confirmed bool

		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %s?", path)).
			Description("The next run will open the browser to grant access again.").
			Affirmative("Delete").
			Negative("Keep").
			Value(&confirmed).
			Run()

		return confirmed, err
	}
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authResetCmd)
	authResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Delete without asking")
}

func runAuthCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigOrDefault()
	if err != nil {
		return err
	}

	manager := newManager(cfg)

	cred, state, err := manager.Credential(cmd.Context())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	printCredential(cmd.OutOrStdout(), manager.TokenPath, cred, state)

	return nil
}

func printCredential(out io.Writer, path string, cred *auth.Credential, state auth.State) {
	var outcome string

	switch state {
	case auth.StateValid:
		outcome = "stored token is valid"
	case auth.StateRefresh:
		outcome = "token refreshed"
	case auth.StateConsent:
		outcome = "new consent granted"
	}

	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Token file:"), path)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Status:    "), outcome)

	if !cred.Expiry.IsZero() {
		fmt.Fprintf(out, "%s %s (%s)\n", labelStyle.Render("Expires:   "),
			cred.Expiry.Local().Format("2006-01-02 15:04:05"), humanize.Time(cred.Expiry))
	}

	if len(cred.Scopes) > 0 {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Scopes:    "), strings.Join(cred.Scopes, ", "))
	}
}

func runAuthResetCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigOrDefault()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	path := config.TokenPath(cfg)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "No token stored at %s.\n", path)

		return nil
	}

	if !resetYes {
		if !isInteractive() {
			return fmt.Errorf("refusing to delete %s without confirmation: rerun with --yes", path)
		}

		confirmed, err := confirmReset(path)
		if err != nil {
			return err
		}

		if !confirmed {
			fmt.Fprintln(out, "Token kept.")

			return nil
		}
	}

	if err := auth.DeleteCredential(path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Removed %s. The next run will ask for consent again.\n", path)

	return nil
}
