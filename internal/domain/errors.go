package domain

import "errors"

var (
	// ErrMalformedMessage means the raw payload is neither a keyed mapping of
	// symbol to fields nor an array of per-symbol objects. The whole message
	// is discarded; processing continues with the next one.
	ErrMalformedMessage = errors.New("malformed market message")

	// ErrFavoritesSync means a favorites toggle round trip failed and the
	// optimistic local update was rolled back.
	ErrFavoritesSync = errors.New("favorites sync failed")
)
