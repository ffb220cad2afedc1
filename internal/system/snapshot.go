// Package system holds the host's built-in systems: periodic world snapshots
// and debug stats. Plugin-contributed systems register through the World.
package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/persist"
)

// SnapshotSaver is the slice of SnapshotRepo the system needs.
type SnapshotSaver interface {
	Save(ctx context.Context, records []persist.EntityRecord) (int64, error)
	Prune(ctx context.Context, keep int) error
}

// SnapshotSystem serializes the world every interval ticks, skipping when the
// component revision has not moved since the last save.
type SnapshotSystem struct {
	repo     SnapshotSaver
	interval int
	keep     int
	ticks    int
	lastRev  uint64
	saved    bool
	log      *zap.Logger
}

func NewSnapshotSystem(repo SnapshotSaver, interval, keep int, log *zap.Logger) *SnapshotSystem {
	if interval < 1 {
		interval = 1
	}
	return &SnapshotSystem{
		repo:     repo,
		interval: interval,
		keep:     keep,
		log:      log,
	}
}

func (s *SnapshotSystem) Update(w *ecs.World, dt time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0
	if s.saved && w.Revision() == s.lastRev {
		s.log.Debug("world unchanged, skipping snapshot")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.SaveNow(ctx, w); err != nil {
		s.log.Error("periodic snapshot failed", zap.Error(err))
	}
}

// SaveNow snapshots unconditionally. The daemon calls this once more at
// shutdown.
func (s *SnapshotSystem) SaveNow(ctx context.Context, w *ecs.World) error {
	rev := w.Revision()
	records, err := persist.EncodeWorld(w)
	if err != nil {
		return err
	}
	id, err := s.repo.Save(ctx, records)
	if err != nil {
		return err
	}
	s.lastRev = rev
	s.saved = true
	s.log.Info("world snapshot saved",
		zap.Int64("snapshot", id),
		zap.Int("entities", len(records)),
	)
	if s.keep > 0 {
		if err := s.repo.Prune(ctx, s.keep); err != nil {
			s.log.Warn("snapshot prune failed", zap.Error(err))
		}
	}
	return nil
}
