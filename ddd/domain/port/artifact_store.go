package port

import "context"

// ArtifactStore holds the rendered files of a clip, keyed by its artifact directory.
type ArtifactStore interface {
	// Publish makes the files under localDir available under dir.
	Publish(ctx context.Context, dir, localDir string) error
	// Remove deletes everything under dir and reports the bytes released.
	Remove(ctx context.Context, dir string) (int64, error)
}
