package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the cliparr CLI. Running it without a subcommand serves.
func NewRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "cliparr",
		Short:         "Share clips of your Plex library",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(configFlag)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default from CONFIG_PATH / CONFIG_ENV)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers with the transcode scheduler and sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(configFlag)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue clips and release their artifacts once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Sweep(configFlag)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Migrate(configFlag)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	})

	return rootCmd
}
