package domain

import "context"

// ArtifactSink persists an exported artifact somewhere the user can reach it
// (local disk, object storage). Persist returns the final location.
type ArtifactSink interface {
	Persist(ctx context.Context, artifact ExportArtifact) (string, error)
}
