package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/otterc/incubator-slider/internal/descriptor"
	"github.com/otterc/incubator-slider/internal/ordering"
)

var validateCmd = &cobra.Command{
	Use:   "validate <descriptor>",
	Short: "Validate an application descriptor",
	Long: `Loads an application descriptor, checks its components, export groups
and command-order rules, and prints a summary of what the control plane
would deploy.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	application, err := descriptor.Load(args[0])
	if err != nil {
		return fmt.Errorf("descriptor is invalid: %w", err)
	}
	order, err := ordering.New(application.CommandOrders)
	if err != nil {
		return fmt.Errorf("descriptor is invalid: %w", err)
	}

	fmt.Printf("Application %s", application.Name)
	if application.Version != "" {
		fmt.Printf(" (version %s)", application.Version)
	}
	fmt.Println()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Component", "Category", "Publishes Config", "Script", "Timeout"})
	for _, component := range application.Components {
		script, timeout := "-", "-"
		if component.CommandScript != nil {
			script = component.CommandScript.Script
			if component.CommandScript.TimeoutSeconds > 0 {
				timeout = fmt.Sprintf("%ds", component.CommandScript.TimeoutSeconds)
			}
		}
		t.AppendRow(table.Row{component.Name, component.Category, component.PublishConfig, script, timeout})
	}
	t.Render()

	fmt.Printf("%d export group(s), %d config file(s), %d command order rule(s)\n",
		len(application.ExportGroups), len(application.ConfigFiles), order.Edges())
	fmt.Println("Descriptor is valid.")
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
