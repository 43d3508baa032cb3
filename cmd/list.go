package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [folder-id-or-url]",
	Short: "List the direct children of a Drive folder",
	Long: `List the files and folders directly inside a Google Drive folder without
downloading anything. Defaults to the configured folder.

Examples:
  gdrive-transfer list
  gdrive-transfer list 1aBcDeFGhIjKlMnOpQrStUvWzYxZ
  gdrive-transfer list "https://drive.google.com/drive/folders/1aBcDeFGhIjKlMnOpQrStUvWzYxZ"
  gdrive-transfer list --modified-since 7d`,
	Args: cobra.MaximumNArgs(1),
	RunE: runListCommand,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&modifiedSince, "modified-since", "", "Only list files modified after this date")
}

func runListCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		folderID = args[0]
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	lister, err := newLister(cfg, newManager(cfg))
	if err != nil {
		return err
	}

	return runList(cmd, lister, cfg.Drive.FolderID)
}

func runList(cmd *cobra.Command, lister folderLister, id string) error {
	out := cmd.OutOrStdout()

	entries, err := lister.ListFolder(cmd.Context(), id)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No files found or an error occurred. Check the folder ID and your permissions.")

		return nil
	}

	folders := 0

	for _, entry := range entries {
		if entry.IsFolder() {
			folders++
		}

		printEntry(out, entry)
	}

	fmt.Fprintf(out, "\n%d entries (%d folders) in '%s'\n", len(entries), folders, id)

	return nil
}
