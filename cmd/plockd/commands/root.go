// Package commands implements the plockd CLI: a daemon entrypoint plus
// operator subcommands, following the teacher's cmd/dittofs/commands
// root-command-plus-init pattern.
package commands

import "github.com/spf13/cobra"

var (
	// Version information injected at build time via -ldflags.
	Version = "dev"
	Commit  = "none"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "plockd",
	Short: "plockd - cluster-wide POSIX advisory byte-range lock coordinator",
	Long: `plockd runs one node's instance of the cluster lock coordinator: it
tracks byte-range locks per mount group, broadcasts LOCK/UNLOCK operations
through the cluster so every node's state converges, and periodically
checkpoints that state to disk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: /etc/plockd/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("plockd %s (%s)\n", Version, Commit)
		return nil
	},
}
