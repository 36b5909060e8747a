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
	editScript string
	editWidth  int
	editHeight int
	editShots  string
)

var editCmd = &cobra.Command{
	Use:   "edit <document-id>",
	Short: "Open a document in a window, saving every change",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editScript, "script", "", "Gesture script to replay after the window opens")
	editCmd.Flags().IntVar(&editWidth, "width", 1280, "Window width")
	editCmd.Flags().IntVar(&editHeight, "height", 720, "Window height")
	editCmd.Flags().StringVar(&editShots, "screenshots", "screenshots", "Directory for F12 and script screenshots")
}

func runEdit(cmd *cobra.Command, args []string) error {
	id := args[0]
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

	database, docs, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	e := sketchboard.New(nil,
		sketchboard.WithConfig(cfg),
		sketchboard.WithLogger(log),
		sketchboard.WithSurfaceSize(float64(editWidth), float64(editHeight)),
	)
	e.ScreenshotDir = editShots

	body, err := docs.Load(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("new document", zap.String("id", id))
	case err != nil:
		return err
	default:
		if err := e.Load(body); err != nil {
			log.Warn("stored document unreadable, starting empty", zap.String("id", id), zap.Error(err))
		}
	}
	e.SetChangeSink(store.NewSink(docs, id, id, log))

	if editScript != "" {
		data, err := os.ReadFile(editScript)
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		runner, err := sketchboard.LoadGestureScript(data)
		if err != nil {
			return err
		}
		e.SetScriptRunner(runner)
	}

	return sketchboard.Run(e, sketchboard.RunConfig{
		Title:   "Sketchboard - " + id,
		Width:   editWidth,
		Height:  editHeight,
		ShowFPS: debug,
	})
}
