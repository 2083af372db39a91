package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blueberry-browser/blueberry-go/pkg/core"
)

func init() {
	var addr string
	var tabs []string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				config.HTTP.Addr = addr
			}

			engine, err := core.NewEngine(config, core.WithSurface(surfaceFromURLs(tabs)))
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return engine.Serve(ctx)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringSliceVar(&tabs, "tab", nil, "URL to open in the in-memory surface (repeatable)")

	rootCmd.AddCommand(serveCmd)
}
