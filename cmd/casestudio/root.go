package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	envServer = "CASESTUDIO_SERVER"
	envToken  = "CASESTUDIO_TOKEN"

	defaultServer = "http://localhost:8080/api"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "casestudio",
	Short:         "Generate case study outlines, summaries, and headlines",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr(envServer, defaultServer), "API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv(envToken), "Bearer token")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log client activity to stderr")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(typesCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
