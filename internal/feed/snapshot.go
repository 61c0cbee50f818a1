package feed

import (
	"context"

	"gorm.io/gorm"

	"github.com/chirpnet/chirp/internal/db"
)

// RelationSnapshot holds the viewer's relation sets, loaded once per request
// so visibility decisions are pure set-membership tests.
type RelationSnapshot struct {
	Following map[int64]bool
	Blocked   map[int64]bool // either direction
	Muted     map[int64]bool
}

// EmptySnapshot returns the snapshot used for anonymous viewers.
func EmptySnapshot() *RelationSnapshot {
	return &RelationSnapshot{
		Following: map[int64]bool{},
		Blocked:   map[int64]bool{},
		Muted:     map[int64]bool{},
	}
}

// SnapshotLoader loads relation snapshots from the database
type SnapshotLoader struct {
	relations *db.RelationRepository
}

// NewSnapshotLoader creates a new snapshot loader
func NewSnapshotLoader(database *gorm.DB) *SnapshotLoader {
	return &SnapshotLoader{
		relations: db.NewRelationRepository(db.NewRepository(database)),
	}
}

// Load builds the relation snapshot for a viewer. Blocks are folded into a
// single set covering both directions.
func (l *SnapshotLoader) Load(ctx context.Context, viewerID int64) (*RelationSnapshot, error) {
	snap := EmptySnapshot()

	followingIDs, err := l.relations.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range followingIDs {
		snap.Following[id] = true
	}

	blockedIDs, err := l.relations.BlockRelatedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range blockedIDs {
		snap.Blocked[id] = true
	}

	mutedIDs, err := l.relations.MutedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range mutedIDs {
		snap.Muted[id] = true
	}

	return snap, nil
}
