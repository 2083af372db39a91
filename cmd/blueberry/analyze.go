package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blueberry-browser/blueberry-go/pkg/core"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

func init() {
	var tabs []string

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one pattern analysis over the recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(core.WithSurface(surfaceFromURLs(tabs)))
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			ctx := cmd.Context()
			engine.Suggestions.AnalyzePatterns(ctx)

			pending, err := engine.Suggestions.List(ctx, model.StatusPending)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, pending)
		},
	}
	analyzeCmd.Flags().StringSliceVar(&tabs, "tab", nil, "URL of an open tab to include in the context (repeatable)")

	rootCmd.AddCommand(analyzeCmd)
}
