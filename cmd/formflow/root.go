package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// logger is configured from --log-level before any command runs.
var logger = logging.NewNop()

var rootCmd = &cobra.Command{
	Use:   "formflow",
	Short: "Formflow runs event registration questionnaires",
	Long: `Formflow loads a form schema (YAML or JSON), asks its questions in order,
skips what does not apply and validates every answer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(".env"); err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("log-level")
		if !cmd.Flags().Changed("log-level") {
			raw = envString("FORMFLOW_LOG_LEVEL", raw)
		}
		level, err := logging.ParseLevel(raw)
		if err != nil {
			return err
		}
		logger = logging.NewWriter(cmd.ErrOrStderr(), level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error (env FORMFLOW_LOG_LEVEL)")
}

// loadDotEnv loads path into the environment. A missing file is not an error;
// variables already set win over the file.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// stringFlag returns the flag value, or the environment value when the flag
// was not set on the command line.
func stringFlag(cmd *cobra.Command, name, env string) string {
	v, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) {
		return v
	}
	return envString(env, v)
}

func intFlag(cmd *cobra.Command, name, env string) int {
	v, _ := cmd.Flags().GetInt(name)
	if cmd.Flags().Changed(name) {
		return v
	}
	return envInt(env, v)
}

func boolFlag(cmd *cobra.Command, name, env string) bool {
	v, _ := cmd.Flags().GetBool(name)
	if cmd.Flags().Changed(name) {
		return v
	}
	return envBool(env, v)
}

func durationFlag(cmd *cobra.Command, name, env string) time.Duration {
	v, _ := cmd.Flags().GetDuration(name)
	if cmd.Flags().Changed(name) {
		return v
	}
	return envDuration(env, v)
}
