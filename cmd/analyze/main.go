// Command analyze is a small client for the video analyzer HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	pollInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "analyze",
	Short:         "Submit and inspect video analysis jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	def := os.Getenv("ANALYZER_URL")
	if def == "" {
		def = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", def, "base URL of the analyzer API (env ANALYZER_URL)")
	rootCmd.AddCommand(submitCmd, getCmd, listCmd, deleteCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
