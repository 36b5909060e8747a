package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/phanxgames/sketchboard"
	"github.com/phanxgames/sketchboard/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	replayDoc       string
	replayOut       string
	replaySave      bool
	replayMaxFrames int
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Replay a gesture script headlessly and print or save the result",
	Long: `Replay runs a gesture script against a document without opening a window.
Screenshot steps are ignored. The resulting document is written to --out
(or stdout), and with --save it is stored back under --doc.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayDoc, "doc", "", "Starting document: stored id or .json file (default: empty)")
	replayCmd.Flags().StringVarP(&replayOut, "out", "o", "", "Output file (default: stdout)")
	replayCmd.Flags().BoolVar(&replaySave, "save", false, "Store the result under --doc")
	replayCmd.Flags().IntVar(&replayMaxFrames, "max-frames", 10000, "Abort after this many frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	script, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	runner, err := sketchboard.LoadGestureScript(script)
	if err != nil {
		return err
	}

	var docs *store.DocumentStore
	if replayDoc != "" || replaySave {
		database, d, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()
		docs = d
	}

	e := sketchboard.New(nil, sketchboard.WithConfig(cfg), sketchboard.WithLogger(log))
	if replayDoc != "" {
		body, err := loadDocument(ctx, docs, replayDoc)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if body != nil {
			if err := e.Load(body); err != nil {
				return err
			}
		}
	}

	e.SetScriptRunner(runner)
	if err := runner.Play(e, replayMaxFrames); err != nil {
		log.Warn("replay finished with errors", zap.Error(err))
	}

	out, err := e.Serialize()
	if err != nil {
		return err
	}
	if replaySave {
		if replayDoc == "" {
			return errors.New("--save requires --doc")
		}
		if err := docs.Save(ctx, replayDoc, "", out); err != nil {
			return err
		}
	}
	if replayOut == "" {
		_, err = cmd.OutOrStdout().Write(append(out, '\n'))
		return err
	}
	return os.WriteFile(replayOut, out, 0o644)
}
