package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llm-bench/engine/pkg/models"
)

var suitesCmd = &cobra.Command{
	Use:   "suites",
	Short: "List available benchmark suites",
	RunE:  runSuitesList,
}

func init() {
	rootCmd.AddCommand(suitesCmd)
}

func runSuitesList(cmd *cobra.Command, args []string) error {
	var suites []models.Suite
	if err := doRequest("GET", "/api/suites", nil, &suites); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(suites)
	}

	if len(suites) == 0 {
		fmt.Println("No suites loaded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCENARIOS")
	fmt.Fprintln(w, "----\t---------")
	for _, s := range suites {
		fmt.Fprintf(w, "%s\t%d\n", s.Name, len(s.Scenarios))
	}
	return w.Flush()
}
