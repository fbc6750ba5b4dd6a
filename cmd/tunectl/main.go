// Command tunectl is the CLI companion of tuned: it submits
// experiments, watches jobs, and fetches results.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:           "tunectl",
		Short:         "Control a tuned daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "tuned server URL")

	root.AddCommand(
		newRunCommand(),
		newListCommand(),
		newGetCommand(),
		newStopCommand(),
		newBestCommand(),
		newTrialsCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tunectl: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
