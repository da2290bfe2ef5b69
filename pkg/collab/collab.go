package collab

import (
	"context"

	"github.com/cuemby/ledger/pkg/entity"
)

// Policy is the configuration a collaborator hands back for one entity
// type — e.g. which index fields to maintain, how long to retain an
// archive, how often to run a purge sweep. The core never interprets
// Rules; it is opaque, collaborator-defined data.
type Policy struct {
	EntityType string
	Enabled    bool
	Rules      map[string]any
}

// IndexingProvider maintains a secondary index over Entity.IndexFields.
// A caller invokes Index after a commit it wants reflected; nothing in
// this module calls Index or reads the index back.
type IndexingProvider interface {
	GetPolicy(entityType string) (Policy, bool)
	Index(ctx context.Context, e *entity.Entity) error
}

// ArchiveProvider moves committed entities to cold storage on whatever
// schedule its Policy describes.
type ArchiveProvider interface {
	GetPolicy(entityType string) (Policy, bool)
	Archive(ctx context.Context, e *entity.Entity) error
}

// BackupProvider snapshots a named provider's store to durable storage.
type BackupProvider interface {
	GetPolicy(entityType string) (Policy, bool)
	Backup(ctx context.Context, providerName string) error
}

// PurgeProvider removes entities that have aged out per its Policy.
type PurgeProvider interface {
	GetPolicy(entityType string) (Policy, bool)
	Purge(ctx context.Context, entityType string) (int, error)
}

// MigrationProvider transforms stored entities of one version into
// another, outside the scope of any single commit.
type MigrationProvider interface {
	GetPolicy(entityType string) (Policy, bool)
	Migrate(ctx context.Context, fromVersion, toVersion int64) error
}
