package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloom/internal/config"
	"github.com/abhisek/bloom/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "bloom",
	Short: "GCSE mathematics tutor",
	Long:  "Bloom: an LLM-driven GCSE mathematics tutor served over a JSON API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides BLOOM_DB and DATABASE_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syllabusCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then BLOOM_DB / DATABASE_PATH, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore resolves the database path and opens it.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
