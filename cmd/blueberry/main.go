// Command blueberry runs and inspects the browser background engine.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/core"
)

var (
	cfgFile string
	dbPath  string
	rootCmd = &cobra.Command{
		Use:           "blueberry",
		Short:         "Background engine of the Blueberry browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (.yaml or .json); environment when empty")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*core.Config, error) {
	config, err := core.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		config.Storage.Provider = "sqlite"
		config.Storage.DBPath = dbPath
	}
	return config, nil
}

// openEngine builds an engine for a one-shot command.
func openEngine(opts ...core.Option) (*core.Engine, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return core.NewEngine(config, opts...)
}

// surfaceFromURLs opens one in-memory tab per URL; the first is active.
func surfaceFromURLs(urls []string) *browser.MemorySurface {
	surface := browser.NewMemorySurface()
	for i, u := range urls {
		surface.Open(browser.NewMemoryTab(fmt.Sprintf("tab-%d", i+1), u, u))
	}
	if len(urls) > 0 {
		_ = surface.Activate("tab-1")
	}
	return surface
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
