package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minisoc-systems/minisoc/cli/internal/client"
	"github.com/minisoc-systems/minisoc/cli/pkg/output"
	"github.com/minisoc-systems/minisoc/internal/models"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Event ingestion and search",
	Long:  "Ingest security events and search the event store",
}

var eventsSearchCmd = &cobra.Command{
	Use:     "search",
	Aliases: []string{"ls", "list"},
	Short:   "Search events",
	Long:    "Search recent events with optional type and source filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		eventType, _ := cmd.Flags().GetString("type")
		sourceIP, _ := cmd.Flags().GetString("source-ip")
		lastMinutes, _ := cmd.Flags().GetInt("last-minutes")

		events, err := c.QueryEvents(eventType, sourceIP, lastMinutes)
		if err != nil {
			return fmt.Errorf("failed to search events: %w", err)
		}

		if outputFormat(cmd) == "json" {
			return output.JSON(events)
		}

		if len(events) == 0 {
			output.Info("No events found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Type", "Source IP", "Host", "User", "Timestamp"})
		for _, ev := range events {
			table.AddRow([]string{
				ev.ID,
				ev.EventType,
				ev.SourceIP,
				ev.SourceHost,
				ev.Username,
				ev.Timestamp.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

var eventsIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single event",
	Long:  "Post one security event to the ingestion endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		eventType, _ := cmd.Flags().GetString("type")
		rawLog, _ := cmd.Flags().GetString("raw-log")
		sourceHost, _ := cmd.Flags().GetString("source-host")
		sourceIP, _ := cmd.Flags().GetString("source-ip")
		username, _ := cmd.Flags().GetString("username")
		severity, _ := cmd.Flags().GetInt("severity")

		now := time.Now().UTC()
		resp, err := c.IngestEvent(&models.IngestEventRequest{
			EventType:  eventType,
			RawLog:     rawLog,
			SourceHost: sourceHost,
			SourceIP:   sourceIP,
			Username:   username,
			Severity:   severity,
			Timestamp:  &now,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest event: %w", err)
		}

		output.Success("Event ingested: %s", resp.EventID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsSearchCmd)
	eventsCmd.AddCommand(eventsIngestCmd)

	eventsSearchCmd.Flags().StringP("type", "t", "", "Filter by event type")
	eventsSearchCmd.Flags().String("source-ip", "", "Filter by source IP")
	eventsSearchCmd.Flags().IntP("last-minutes", "m", 60, "Trailing window in minutes")

	eventsIngestCmd.Flags().StringP("type", "t", "", "Event type (required)")
	eventsIngestCmd.Flags().String("raw-log", "", "Raw log line (required)")
	eventsIngestCmd.Flags().String("source-host", "", "Source host (required)")
	eventsIngestCmd.Flags().String("source-ip", "", "Source IP")
	eventsIngestCmd.Flags().String("username", "", "Username")
	eventsIngestCmd.Flags().IntP("severity", "s", 1, "Severity 1-5")

	for _, flag := range []string{"type", "raw-log", "source-host"} {
		if err := eventsIngestCmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %s as required: %v", flag, err))
		}
	}
}
