package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command of the control plane.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "slider-agent-server",
	Short: "Control plane for agent-managed application components",
	Long: `slider-agent-server runs the control-plane side of the agent protocol:
remote agents register, heartbeat periodically, and receive the lifecycle
commands (install, start, stop) that drive their components, ordered by
the dependency rules of the application descriptor. Resolved configuration
and export bundles are published for cross-component and operator
consumption.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// Called from the main package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "slider-agent-server version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
