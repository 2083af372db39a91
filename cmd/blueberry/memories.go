package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blueberry-browser/blueberry-go/pkg/memory"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

func init() {
	memoriesCmd := &cobra.Command{Use: "memories", Short: "Content store operations"}

	// add
	var kind, chatID string
	addCmd := &cobra.Command{
		Use:   "add CONTENT",
		Short: "Store a memory entry and wait for its embedding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			entry, err := engine.Memories.Add(cmd.Context(), args[0], model.MemoryKind(kind), memory.WithChatID(chatID))
			if err != nil {
				return err
			}
			engine.Memories.Wait()
			return printJSON(os.Stdout, entry)
		},
	}
	addCmd.Flags().StringVarP(&kind, "type", "t", string(model.KindChat), "entry type (chat or page)")
	addCmd.Flags().StringVar(&chatID, "chat", "", "chat ID")
	memoriesCmd.AddCommand(addCmd)

	// list
	var opts memory.ListOptions
	var listKind string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			opts.Kind = model.MemoryKind(listKind)
			page, err := engine.Memories.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, page)
		},
	}
	listCmd.Flags().StringVarP(&listKind, "type", "t", "", "filter by entry type")
	listCmd.Flags().StringVarP(&opts.Search, "search", "s", "", "case-insensitive text filter")
	listCmd.Flags().IntVarP(&opts.Limit, "limit", "l", memory.DefaultListLimit, "page size")
	listCmd.Flags().IntVarP(&opts.Offset, "offset", "o", 0, "page offset")
	memoriesCmd.AddCommand(listCmd)

	// search
	var topK int
	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Similarity search over embedded entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			results, err := engine.Memories.SearchSimilar(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, results)
		},
	}
	searchCmd.Flags().IntVarP(&topK, "topk", "k", memory.DefaultSearchLimit, "number of results")
	memoriesCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(memoriesCmd)
}
