// Package main is the entry point for the cookie engine server and its
// operator tools. It only handles dependency injection and wiring.
// NO game logic belongs here.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
)

var (
	configPath string
	presetName string
	dbPath     string
	slotName   string
)

func main() {
	root := &cobra.Command{
		Use:           "cookie-server",
		Short:         "Authoritative idle cookie engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file overlaid on the preset")
	root.PersistentFlags().StringVar(&presetName, "preset", "default", "config preset: default, stress or low")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite path (overrides config)")
	root.PersistentFlags().StringVar(&slotName, "slot", "", "save slot (overrides config)")

	root.AddCommand(newServeCmd(), newSimulateCmd(), newInspectCmd(), newHistoryCmd(), newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves preset, file and flag overrides, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Preset(presetName)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if cfg, err = config.Load(configPath, cfg); err != nil {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.Storage.SQLitePath = dbPath
	}
	if slotName != "" {
		cfg.Storage.Slot = slotName
	}
	return cfg, cfg.Validate()
}

func newConfigCmd() *cobra.Command {
	var tune string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		Long: "Print the resolved configuration as YAML. With --tune, read a metrics\n" +
			"snapshot from a running server (or a saved /metrics file) and print the\n" +
			"configuration adjusted to what it recommends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if tune != "" {
				snap, err := fetchSnapshot(tune)
				if err != nil {
					return err
				}
				rec := config.Analyze(cfg, snap)
				for _, note := range rec.Notes {
					fmt.Fprintln(cmd.ErrOrStderr(), "# "+note)
				}
				cfg = config.ApplyRecommendations(cfg, rec)
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&tune, "tune", "", "metrics snapshot to tune against: a /metrics URL or a JSON file")
	return cmd
}

func fetchSnapshot(src string) (map[string]interface{}, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(src)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: %s", src, resp.Status)
		}
		return config.ReadSnapshot(resp.Body)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.ReadSnapshot(f)
}
