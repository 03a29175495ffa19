package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/llm-bench/engine/pkg/models"
)

var (
	runSuiteName string
	runModelIDs  []string
	runIterations int
	runTimeoutMs  int
	runTemperature float64
	runStreaming  bool
	runListStatus string
	runListSuite  string
	runListLimit  int
	runExportFormat string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage benchmark runs",
}

var runsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a benchmark run",
	RunE:  runRunsStart,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List benchmark runs",
	RunE:  runRunsList,
}

var runsStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show a run's current status",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsStatus,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a run and its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a run's results as JSON or CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsStartCmd, runsListCmd, runsStatusCmd, runsGetCmd, runsExportCmd)

	runsStartCmd.Flags().StringVar(&runSuiteName, "suite", "", "suite name to run (required)")
	runsStartCmd.Flags().StringSliceVar(&runModelIDs, "model", nil, "model descriptor id to run against (repeatable, required)")
	runsStartCmd.Flags().IntVar(&runIterations, "iterations", 0, "override iterations (0 = server default)")
	runsStartCmd.Flags().IntVar(&runTimeoutMs, "timeout-ms", 0, "override per-iteration timeout in ms (0 = server default)")
	runsStartCmd.Flags().Float64Var(&runTemperature, "temperature", 0, "override sampling temperature (0 = server default)")
	runsStartCmd.Flags().BoolVar(&runStreaming, "streaming", true, "use streaming inference")
	_ = runsStartCmd.MarkFlagRequired("suite")
	_ = runsStartCmd.MarkFlagRequired("model")

	runsListCmd.Flags().StringVar(&runListStatus, "status", "", "filter by status (running, completed, failed)")
	runsListCmd.Flags().StringVar(&runListSuite, "suite", "", "filter by suite name")
	runsListCmd.Flags().IntVar(&runListLimit, "limit", 0, "limit number of results (0 = no limit)")

	runsExportCmd.Flags().StringVar(&runExportFormat, "format", "json", "export format (json or csv)")
}

func runRunsStart(cmd *cobra.Command, args []string) error {
	reqBody := map[string]interface{}{
		"suite_name": runSuiteName,
		"model_ids":  runModelIDs,
	}
	if runIterations > 0 || runTimeoutMs > 0 || runTemperature > 0 || cmd.Flags().Changed("streaming") {
		config := models.DefaultRunConfig()
		if runIterations > 0 {
			config.Iterations = runIterations
		}
		if runTimeoutMs > 0 {
			config.TimeoutMs = runTimeoutMs
		}
		if runTemperature > 0 {
			config.Temperature = runTemperature
		}
		config.Streaming = runStreaming
		reqBody["config"] = config
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	var started struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
	}
	if err := doRequest(http.MethodPost, "/api/runs", bytes.NewReader(body), &started); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(started)
	}
	fmt.Printf("started run %s (status=%s)\n", started.RunID, started.Status)
	return nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	path := "/api/runs"
	query := ""
	if runListStatus != "" {
		query += "status=" + runListStatus + "&"
	}
	if runListSuite != "" {
		query += "suite_name=" + runListSuite + "&"
	}
	if runListLimit > 0 {
		query += fmt.Sprintf("limit=%d&", runListLimit)
	}
	if query != "" {
		path += "?" + query[:len(query)-1]
	}

	var runs []*models.Run
	if err := doRequest(http.MethodGet, path, nil, &runs); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUITE\tSTATUS\tSTARTED")
	fmt.Fprintln(w, "--\t-----\t------\t-------")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.SuiteName, r.Status, r.StartedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runRunsStatus(cmd *cobra.Command, args []string) error {
	var status struct {
		RunID    string `json:"run_id"`
		Status   string `json:"status"`
		Progress int    `json:"progress"`
		Error    string `json:"error,omitempty"`
	}
	if err := doRequest(http.MethodGet, "/api/runs/"+args[0]+"/status", nil, &status); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(status)
	}
	fmt.Printf("run %s: status=%s progress=%d%%\n", status.RunID, status.Status, status.Progress)
	if status.Error != "" {
		fmt.Printf("error: %s\n", status.Error)
	}
	return nil
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	var detail struct {
		*models.Run
		Results []*models.Result `json:"results"`
	}
	if err := doRequest(http.MethodGet, "/api/runs/"+args[0], nil, &detail); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(detail)
	}

	fmt.Printf("run %s (suite=%s status=%s)\n", detail.ID, detail.SuiteName, detail.Status)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSCENARIO\tTPS\tLATENCY_P50\tERROR_RATE")
	fmt.Fprintln(w, "-----\t--------\t---\t-----------\t----------")
	for _, r := range detail.Results {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\n", r.ModelID, r.Scenario, r.TPS, r.LatencyP50, r.ErrorRate)
	}
	return w.Flush()
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(serverURL + "/api/runs/" + args[0] + "/export?format=" + runExportFormat)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(raw))
	}

	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}
