package domain

import "time"

// AlarmEvent records one volume-spike alarm. Immutable once created.
// ID is a stable list key (time plus random suffix), not a business key.
type AlarmEvent struct {
	ID      string    `json:"id"`
	Symbol  string    `json:"symbol"`
	Message string    `json:"message"`
	FiredAt time.Time `json:"firedAt"`
}
