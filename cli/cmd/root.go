package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "msoc",
	Short: "minisoc CLI",
	Long: `msoc is the command-line interface for the minisoc detection service.

Ingest and search security events, review alerts and incidents, and seed
demo data against a running minisoc instance.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "minisoc server URL")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func serverURL(cmd *cobra.Command) string {
	url, _ := cmd.Flags().GetString("server")
	return url
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}
