package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/formflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

const defaultStoreDir = ".formflow/sessions"

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved sessions",
	Long:  `List, inspect, and remove sessions saved by "formflow run" in the file store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := getStore(cmd)
		users, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, "No saved sessions found.")
			return nil
		}

		fmt.Fprintln(out, "Saved Sessions:")
		for _, user := range users {
			s, err := store.Load(cmd.Context(), user)
			if err != nil {
				fmt.Fprintf(out, "- %s (unreadable: %v)\n", user, err)
				continue
			}
			fmt.Fprintf(out, "- %s [%s] %d answers, updated %s\n",
				user, s.Status, len(s.Answers), s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <user-id>",
	Short: "Print a saved session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore(cmd).Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}

		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <user-id>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := getStore(cmd)
		if all, _ := cmd.Flags().GetBool("all"); all {
			users, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}
			args = users
		} else if len(args) == 0 {
			return errors.New("requires at least 1 user id, or --all")
		}

		var failed bool
		for _, user := range args {
			if err := store.Delete(cmd.Context(), user); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", user, err)
				failed = true
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", user)
		}
		if failed {
			return errors.New("some sessions could not be removed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionCmd.PersistentFlags().String("store-dir", defaultStoreDir, "Directory for saved sessions (env FORMFLOW_STORE_DIR)")
	sessionRmCmd.Flags().Bool("all", false, "Remove every saved session")
}

func getStore(cmd *cobra.Command) *file.Store {
	return file.New(stringFlag(cmd, "store-dir", "FORMFLOW_STORE_DIR"))
}
