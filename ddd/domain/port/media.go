package port

import (
	"context"

	"cliparr/ddd/domain/vo"
)

// MediaResolver looks up one library item and its on-disk path.
type MediaResolver interface {
	Resolve(ctx context.Context, plexToken, ratingKey string) (*vo.MediaItem, error)
}

// PlexPin is an in-flight PIN login.
type PlexPin struct {
	ID        int64
	Code      string
	AuthToken string
}

// PlexUser is the account behind a Plex token.
type PlexUser struct {
	ID       string
	Username string
	Email    string
	Thumb    string
}

// PlexAccount talks to plex.tv and the media server on behalf of a signing-in user.
type PlexAccount interface {
	CreatePin(ctx context.Context) (*PlexPin, error)
	CheckPin(ctx context.Context, pinID string) (*PlexPin, error)
	AuthURL(code string) string
	User(ctx context.Context, plexToken string) (*PlexUser, error)
	IsServerOwner(ctx context.Context, plexToken string) (bool, error)
}
