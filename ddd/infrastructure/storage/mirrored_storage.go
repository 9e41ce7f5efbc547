package storage

import (
	"context"

	"cliparr/ddd/domain/port"
	"cliparr/pkg/logger"
)

// MirroredStorage pairs the local clips root with an optional remote mirror.
// The primary decides success; mirror failures are logged.
type MirroredStorage struct {
	primary port.ArtifactStore
	mirror  port.ArtifactStore
}

// NewMirroredStorage returns primary unchanged when mirror is nil.
func NewMirroredStorage(primary, mirror port.ArtifactStore) port.ArtifactStore {
	if mirror == nil {
		return primary
	}
	return &MirroredStorage{primary: primary, mirror: mirror}
}

func (s *MirroredStorage) Publish(ctx context.Context, dir, localDir string) error {
	if err := s.primary.Publish(ctx, dir, localDir); err != nil {
		return err
	}
	if err := s.mirror.Publish(ctx, dir, localDir); err != nil {
		logger.Warnf("mirror publish failed dir=%s error=%v", dir, err)
	}
	return nil
}

// Remove reports the bytes released by the primary only.
func (s *MirroredStorage) Remove(ctx context.Context, dir string) (int64, error) {
	n, err := s.primary.Remove(ctx, dir)
	if _, merr := s.mirror.Remove(ctx, dir); merr != nil {
		logger.Warnf("mirror remove failed dir=%s error=%v", dir, merr)
	}
	return n, err
}
