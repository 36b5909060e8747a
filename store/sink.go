package store

import (
	"context"
	"time"

	"github.com/phanxgames/sketchboard"
	"go.uber.org/zap"
)

const (
	// DefaultKeepRevisions is the number of revisions Sink keeps per document.
	DefaultKeepRevisions = 100
	sinkTimeout          = 5 * time.Second
)

// Sink is a sketchboard.ChangeSink that saves the document on every change
// and records a revision for every change except viewport moves.
type Sink struct {
	store *DocumentStore
	id    string
	name  string
	keep  int
	log   *zap.Logger

	// LastErr holds the most recent persistence error, if any.
	LastErr error
}

// NewSink returns a sink that persists under document id.
func NewSink(store *DocumentStore, id, name string, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{store: store, id: id, name: name, keep: DefaultKeepRevisions, log: log}
}

// SetKeepRevisions changes how many revisions are kept. n <= 0 keeps all.
func (s *Sink) SetKeepRevisions(n int) { s.keep = n }

// DocumentChanged implements sketchboard.ChangeSink.
func (s *Sink) DocumentChanged(c sketchboard.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := s.store.Save(ctx, s.id, s.name, c.Document); err != nil {
		s.fail("save document", c, err)
		return
	}
	if c.Reason == sketchboard.ChangeViewport {
		return
	}
	if err := s.store.AddRevision(ctx, s.id, c.Reason.String(), c.Document, s.keep); err != nil {
		s.fail("record revision", c, err)
	}
}

// Notice implements sketchboard.ChangeSink.
func (s *Sink) Notice(n sketchboard.Notice) {
	s.log.Info("notice", zap.String("document", s.id), zap.String("kind", n.Kind.String()), zap.String("message", n.Message))
}

func (s *Sink) fail(op string, c sketchboard.Change, err error) {
	s.LastErr = err
	s.log.Error(op,
		zap.String("document", s.id),
		zap.String("reason", c.Reason.String()),
		zap.Error(err),
	)
}
