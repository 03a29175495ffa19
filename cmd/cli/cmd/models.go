package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llm-bench/engine/pkg/models"
)

var (
	registerAlias    string
	registerModelID  string
	registerEndpoint string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage registered models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models available on the backend",
	RunE:  runModelsList,
}

var modelsRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a model descriptor",
	RunE:  runModelsRegister,
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a registered model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsDelete,
}

var modelsLoadCmd = &cobra.Command{
	Use:   "load <id>",
	Short: "Load a registered model into the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsLoad,
}

var modelsUnloadCmd = &cobra.Command{
	Use:   "unload <id>",
	Short: "Unload a registered model from the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsUnload,
}

var modelsHealthCmd = &cobra.Command{
	Use:   "health <id>",
	Short: "Check a loaded model's health",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsHealth,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd, modelsRegisterCmd, modelsDeleteCmd, modelsLoadCmd, modelsUnloadCmd, modelsHealthCmd)

	modelsRegisterCmd.Flags().StringVar(&registerAlias, "alias", "", "friendly name for the model (required)")
	modelsRegisterCmd.Flags().StringVar(&registerModelID, "model-id", "", "backend model identifier")
	modelsRegisterCmd.Flags().StringVar(&registerEndpoint, "endpoint", "", "endpoint to record on the model descriptor (inference always uses the server's configured backend)")
	_ = modelsRegisterCmd.MarkFlagRequired("alias")
}

func runModelsList(cmd *cobra.Command, args []string) error {
	var entries []models.CatalogEntry
	if err := doRequest("GET", "/api/models/available", nil, &entries); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No models available on the backend.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	fmt.Fprintln(w, "--\t----")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.ID, e.Name)
	}
	return w.Flush()
}

func runModelsRegister(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(map[string]string{
		"alias":    registerAlias,
		"model_id": registerModelID,
		"endpoint": registerEndpoint,
	})
	if err != nil {
		return err
	}

	var created models.Model
	if err := doRequest("POST", "/api/models", bytes.NewReader(body), &created); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(created)
	}
	fmt.Printf("registered model %s (alias=%s)\n", created.ID, created.Alias)
	return nil
}

func runModelsDelete(cmd *cobra.Command, args []string) error {
	if err := doRequest("DELETE", "/api/models/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("deleted model %s\n", args[0])
	return nil
}

func runModelsLoad(cmd *cobra.Command, args []string) error {
	var loaded models.LoadedModelInfo
	if err := doRequest("POST", "/api/models/"+args[0]+"/load", nil, &loaded); err != nil {
		return err
	}
	if outputFormat == "json" {
		return printJSON(loaded)
	}
	fmt.Printf("loaded model %s as %s\n", args[0], loaded.ID)
	return nil
}

func runModelsUnload(cmd *cobra.Command, args []string) error {
	if err := doRequest("POST", "/api/models/"+args[0]+"/unload", nil, nil); err != nil {
		return err
	}
	fmt.Printf("unloaded model %s\n", args[0])
	return nil
}

func runModelsHealth(cmd *cobra.Command, args []string) error {
	var health models.HealthStatus
	if err := doRequest("GET", "/api/models/"+args[0]+"/health", nil, &health); err != nil {
		return err
	}
	if outputFormat == "json" {
		return printJSON(health)
	}
	fmt.Printf("healthy=%t status=%s\n", health.Healthy, health.Status)
	if health.Error != "" {
		fmt.Printf("error: %s\n", health.Error)
	}
	return nil
}
