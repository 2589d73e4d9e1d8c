package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minisoc-systems/minisoc/cli/internal/client"
	"github.com/minisoc-systems/minisoc/cli/pkg/output"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Correlated incident view",
	Long:  "List incidents rolled up from alerts by type and source",
}

var incidentsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		incidents, err := c.ListIncidents()
		if err != nil {
			return fmt.Errorf("failed to list incidents: %w", err)
		}

		if outputFormat(cmd) == "json" {
			return output.JSON(incidents)
		}

		if len(incidents) == 0 {
			output.Info("No incidents found")
			return nil
		}

		table := output.NewTable([]string{"Type", "Source IP", "Severity", "Status", "Alerts", "Events", "Last Seen"})
		for _, inc := range incidents {
			lastSeen := ""
			if inc.LastSeen != nil {
				lastSeen = inc.LastSeen.Format("2006-01-02 15:04")
			}
			table.AddRow([]string{
				inc.AlertType,
				inc.SourceIP,
				fmt.Sprintf("%d", inc.Severity),
				string(inc.Status),
				fmt.Sprintf("%d", inc.AlertCount),
				fmt.Sprintf("%d", inc.EventCount),
				lastSeen,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(incidentsCmd)
	incidentsCmd.AddCommand(incidentsListCmd)
}
