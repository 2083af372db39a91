package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blueberry-browser/blueberry-go/pkg/telemetry"
)

func init() {
	eventsCmd := &cobra.Command{Use: "events", Short: "Activity log operations"}

	// list
	var eventType string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			page, err := engine.Events.List(cmd.Context(), telemetry.ListOptions{
				EventType: eventType,
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, page)
		},
	}
	listCmd.Flags().StringVarP(&eventType, "type", "t", "", "filter by event type")
	listCmd.Flags().IntVarP(&limit, "limit", "l", telemetry.DefaultListLimit, "page size")
	listCmd.Flags().IntVarP(&offset, "offset", "o", 0, "page offset")
	eventsCmd.AddCommand(listCmd)

	// record
	var in telemetry.EventInput
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Append an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			event, err := engine.Events.Append(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, event)
		},
	}
	recordCmd.Flags().StringVar(&in.TabID, "tab", "", "tab ID (required)")
	recordCmd.Flags().StringVar(&in.EventType, "type", "", "event type (required)")
	recordCmd.Flags().StringVar(&in.URL, "url", "", "page URL")
	recordCmd.Flags().StringVar(&in.Title, "title", "", "page title")
	_ = recordCmd.MarkFlagRequired("tab")
	_ = recordCmd.MarkFlagRequired("type")
	eventsCmd.AddCommand(recordCmd)

	rootCmd.AddCommand(eventsCmd)
}
