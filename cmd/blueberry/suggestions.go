package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blueberry-browser/blueberry-go/pkg/core"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

type tabState struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func init() {
	suggestionsCmd := &cobra.Command{Use: "suggestions", Short: "Workflow suggestion operations"}

	// list
	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			list, err := engine.Suggestions.List(cmd.Context(), model.SuggestionStatus(status))
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, list)
		},
	}
	listCmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	suggestionsCmd.AddCommand(listCmd)

	// accept / reject
	for _, verb := range []string{"accept", "reject"} {
		suggestionsCmd.AddCommand(&cobra.Command{
			Use:   verb + " ID",
			Short: "Mark a pending suggestion " + verb + "ed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				engine, err := openEngine()
				if err != nil {
					return err
				}
				defer func() { _ = engine.Close() }()

				transition := engine.Suggestions.Accept
				if verb == "reject" {
					transition = engine.Suggestions.Reject
				}
				sg, err := transition(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, sg)
			},
		})
	}

	// expire
	var ttl time.Duration
	expireCmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire stale pending suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			n, err := engine.Suggestions.ExpireStale(cmd.Context(), ttl)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, map[string]int{"expired": n})
		},
	}
	expireCmd.Flags().DurationVar(&ttl, "ttl", 0, "age after which pending suggestions expire (config default when 0)")
	suggestionsCmd.AddCommand(expireCmd)

	// run
	var tabs []string
	runCmd := &cobra.Command{
		Use:   "run ID",
		Short: "Replay an accepted suggestion against in-memory tabs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surface := surfaceFromURLs(tabs)
			engine, err := openEngine(core.WithSurface(surface))
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			if err := engine.Executor.RunSuggestion(cmd.Context(), args[0]); err != nil {
				return err
			}

			var state []tabState
			for _, t := range surface.Tabs() {
				state = append(state, tabState{ID: t.ID(), URL: t.URL()})
			}
			return printJSON(os.Stdout, state)
		},
	}
	runCmd.Flags().StringSliceVar(&tabs, "tab", []string{"about:blank"}, "URL to open before running (repeatable)")
	suggestionsCmd.AddCommand(runCmd)

	rootCmd.AddCommand(suggestionsCmd)
}
