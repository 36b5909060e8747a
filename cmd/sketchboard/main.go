package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phanxgames/sketchboard"
	"github.com/phanxgames/sketchboard/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dbPath     string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "sketchboard",
	Short: "Multi-sheet diagram and whiteboard canvas",
	Long: `Sketchboard edits flowcharts, ER and UML diagrams and freehand sketches
on multiple sheets. Documents are stored in a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "SQLite database file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Verbose logging and per-frame render stats")

	rootCmd.AddCommand(editCmd, replayCmd, inspectCmd, listCmd, revisionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultDBPath returns SKETCHBOARD_DB or ~/.sketchboard/sketchboard.db.
func defaultDBPath() string {
	if p := os.Getenv("SKETCHBOARD_DB"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sketchboard.db"
	}
	return filepath.Join(home, ".sketchboard", "sketchboard.db")
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig() (sketchboard.Config, error) {
	if configPath == "" {
		return sketchboard.DefaultConfig(), nil
	}
	f, err := os.Open(configPath)
	if err != nil {
		return sketchboard.Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	cfg, err := sketchboard.LoadConfig(f)
	if err != nil {
		return sketchboard.Config{}, err
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func openStore() (*sql.DB, *store.DocumentStore, error) {
	database, err := store.OpenDB(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return database, store.NewDocumentStore(database), nil
}

// loadDocument reads a document from a .json file path or from the store.
// A missing stored document yields nil without error.
func loadDocument(ctx context.Context, docs *store.DocumentStore, ref string) ([]byte, error) {
	if filepath.Ext(ref) == ".json" {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("reading document file: %w", err)
		}
		return data, nil
	}
	if docs == nil {
		return nil, fmt.Errorf("document %s: no store open", ref)
	}
	return docs.Load(ctx, ref)
}
