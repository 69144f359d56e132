package domain

import "time"

// Market-cap tier floors (KRW). The tiers are independent "at least"
// thresholds: a coin above the large floor also satisfies mid and small.
const (
	LargeCapFloor = 5_000_000_000_000
	MidCapFloor   = 700_000_000_000
	SmallCapFloor = 50_000_000_000
)

// CoinRecord is the latest known state for one traded symbol. The store keeps
// exactly one record per symbol and merges incoming ticks into it.
type CoinRecord struct {
	Symbol          string    `json:"symbol"`
	Price           float64   `json:"price"`
	Volume1m        float64   `json:"volume1m"`
	Volume5m        float64   `json:"volume5m"`
	Volume15m       float64   `json:"volume15m"`
	Volume1h        float64   `json:"volume1h"`
	Volume24h       float64   `json:"volume24h"`
	BuyVolume       float64   `json:"buyVolume"`
	SellVolume      float64   `json:"sellVolume"`
	Change24h       float64   `json:"change24h"`
	MarketCap       float64   `json:"marketCap"`
	MaintenanceRate float64   `json:"maintenanceRate"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Tick is one normalized inbound update for a single symbol. A nil field was
// absent from the wire message and must not overwrite the stored value.
type Tick struct {
	Symbol          string
	Price           *float64
	Volume1m        *float64
	Volume5m        *float64
	Volume15m       *float64
	Volume1h        *float64
	Volume24h       *float64
	BuyVolume       *float64
	SellVolume      *float64
	Change24h       *float64
	MarketCap       *float64
	MaintenanceRate *float64
	Timestamp       *int64 // unix millis, upstream clock
	IsFavorite      *bool
}
