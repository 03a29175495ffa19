package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "llm-bench",
	Short: "llm-bench CLI - manage and inspect inference benchmark runs",
	Long: `llm-bench drives repeatable LLM inference benchmarks against an
OpenAI-compatible backend.

This CLI tool allows you to:
- Register and load/unload models on the backend
- Browse available benchmark suites
- Start and inspect benchmark runs
- Export run results as JSON or CSV`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", getEnvOrDefault("LLM_BENCH_URL", "http://localhost:8090"), "llm-bench server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
