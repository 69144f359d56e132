package domain

import "context"

// FavoritesGateway is the remote favorites store. All three calls are
// fallible; callers roll back optimistic local updates on failure.
type FavoritesGateway interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, symbol string) error
}

// FavoritesCache is the local fallback used when the gateway is unreachable.
type FavoritesCache interface {
	SaveFavorites(ctx context.Context, symbols []string) error
	LoadFavorites(ctx context.Context) ([]string, error)
}

// PreferenceStore is an opaque key-value store for user preferences
// (filter flags, show-all, sound toggle). The core does not interpret values
// it does not own.
type PreferenceStore interface {
	SetPreference(ctx context.Context, key, value string) error
	GetPreference(ctx context.Context, key string) (string, error)
	ListPreferences(ctx context.Context) (map[string]string, error)
}
