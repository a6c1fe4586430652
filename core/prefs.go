package core

import "context"

// Preference keys owned by this service.
const (
	LikedMemesKey  = "liked_memes"
	UserProfileKey = "user_profile"
)

type (
	// PreferenceStore is a durable string key-value capability. Backends
	// range from an in-memory map to sqlite, the filesystem, S3 or redis;
	// the state store only ever needs Get and Set.
	//
	// Get returns an error when the key is absent; callers are expected to
	// degrade to a zero value rather than propagate it.
	PreferenceStore interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
	}
)
