package main

import (
	"os"

	"github.com/aretw0/formflow/internal/cli"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <schema>",
	Short: "Answer a form interactively in the terminal",
	Long: `Runs a form session in the terminal. Answers are saved after every step,
so an interrupted session resumes where it stopped. Type ":q" to leave and
":cancel <reason>" to cancel.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userExists, _ := cmd.Flags().GetBool("user-exists")
		variant, _ := cmd.Flags().GetString("variant")
		opts := cli.RunOptions{
			FormPath:  args[0],
			UserID:    stringFlag(cmd, "user", "FORMFLOW_USER"),
			Variant:   domain.Variant(variant),
			Facts:     domain.Facts{UserExists: userExists, EventType: stringFlag(cmd, "event-type", "FORMFLOW_EVENT_TYPE")},
			Language:  stringFlag(cmd, "language", "FORMFLOW_LANGUAGE"),
			StorePath: stringFlag(cmd, "store-dir", "FORMFLOW_STORE_DIR"),
		}
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Debug, _ = cmd.Flags().GetBool("debug")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.Execute(sigCtx, opts, cli.IO{
			In:  os.Stdin,
			Out: cmd.OutOrStdout(),
			Err: cmd.ErrOrStderr(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("user", "local", "User id the session belongs to (env FORMFLOW_USER)")
	runCmd.Flags().String("variant", "", "Form variant: new_user or returning_user (default derived from --user-exists)")
	runCmd.Flags().Bool("user-exists", false, "The user already has a profile")
	runCmd.Flags().String("event-type", "", "Event type the user registers for (env FORMFLOW_EVENT_TYPE)")
	runCmd.Flags().String("language", "", "Initial session language (env FORMFLOW_LANGUAGE)")
	runCmd.Flags().String("store-dir", defaultStoreDir, "Directory for saved sessions (env FORMFLOW_STORE_DIR)")
	runCmd.Flags().Bool("fresh", false, "Discard the saved session and start over")
	runCmd.Flags().BoolP("watch", "w", false, "Reload the schema when the file changes")
	runCmd.Flags().Bool("debug", false, "Log engine activity to stderr")
}
