package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minisoc-systems/minisoc/cli/internal/client"
	"github.com/minisoc-systems/minisoc/cli/pkg/output"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Alert management",
	Long:  "View security alerts and update their investigation status",
}

var alertsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List security alerts",
	Long:    "List the most recent security alerts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		alerts, err := c.ListAlerts()
		if err != nil {
			return fmt.Errorf("failed to list alerts: %w", err)
		}

		if outputFormat(cmd) == "json" {
			return output.JSON(alerts)
		}

		if len(alerts) == 0 {
			output.Info("No alerts found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Type", "Source IP", "Severity", "Events", "Status", "Created"})
		for _, alert := range alerts {
			table.AddRow([]string{
				alert.ID,
				alert.AlertType,
				alert.SourceIP,
				fmt.Sprintf("%d", alert.Severity),
				fmt.Sprintf("%d", alert.EventCount),
				string(alert.Status),
				alert.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		table.Render()
		return nil
	},
}

var alertsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get alert details",
	Long:  "Retrieve a single alert with its related events resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		alert, err := c.GetAlert(args[0])
		if err != nil {
			return fmt.Errorf("failed to get alert: %w", err)
		}

		if outputFormat(cmd) == "json" {
			return output.JSON(alert)
		}

		output.Info("Alert ID: %s", alert.ID)
		output.Info("Type: %s", alert.AlertType)
		output.Info("Source IP: %s", alert.SourceIP)
		output.Info("Severity: %d", alert.Severity)
		output.Info("Status: %s", alert.Status)
		output.Info("Event Count: %d", alert.EventCount)
		if alert.FirstSeen != nil {
			output.Info("First Seen: %s", alert.FirstSeen.Format("2006-01-02 15:04:05"))
		}
		if alert.LastSeen != nil {
			output.Info("Last Seen: %s", alert.LastSeen.Format("2006-01-02 15:04:05"))
		}
		output.Info("Created: %s", alert.CreatedAt.Format("2006-01-02 15:04:05"))

		if len(alert.Events) > 0 {
			output.Info("\nRelated Events:")
			table := output.NewTable([]string{"ID", "Type", "Source IP", "Timestamp"})
			for _, ev := range alert.Events {
				table.AddRow([]string{
					ev.ID,
					ev.EventType,
					ev.SourceIP,
					ev.Timestamp.Format("2006-01-02 15:04:05"),
				})
			}
			table.Render()
		}
		return nil
	},
}

var alertsStatusCmd = &cobra.Command{
	Use:   "status [id] [status]",
	Short: "Update alert status",
	Long:  "Transition an alert to OPEN, INVESTIGATING or CLOSED",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		alert, err := c.UpdateAlertStatus(args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to update alert: %w", err)
		}

		if outputFormat(cmd) == "json" {
			return output.JSON(alert)
		}

		output.Success("Alert %s is now %s", alert.ID, alert.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsGetCmd)
	alertsCmd.AddCommand(alertsStatusCmd)
}
