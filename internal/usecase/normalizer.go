package usecase

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/vitos/coin_alarm/internal/domain"
)

// ParseMessage decodes one raw feed payload into normalized ticks.
// The feed usually pushes the whole symbol universe as a keyed snapshot
// {"KRW-BTC": {...}, "KRW-ETH": {...}}; an array of per-symbol objects is
// accepted as the alternate shape. Any other top-level shape is
// domain.ErrMalformedMessage.
//
// Entries without a usable symbol are dropped silently. A present field that
// fails numeric coercion degrades to 0 instead of killing the tick.
func ParseMessage(raw []byte) ([]domain.Tick, error) {
	var keyed map[string]map[string]interface{}
	if err := json.Unmarshal(raw, &keyed); err == nil && keyed != nil {
		// Keyed snapshots carry no inherent order; sort by symbol so a batch
		// is applied deterministically.
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ticks := make([]domain.Tick, 0, len(keyed))
		for _, key := range keys {
			if tick, ok := normalizeEntry(key, keyed[key]); ok {
				ticks = append(ticks, tick)
			}
		}
		return ticks, nil
	}

	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil && list != nil {
		ticks := make([]domain.Tick, 0, len(list))
		for _, bag := range list {
			if tick, ok := normalizeEntry("", bag); ok {
				ticks = append(ticks, tick)
			}
		}
		return ticks, nil
	}

	return nil, domain.ErrMalformedMessage
}

// normalizeEntry builds one Tick from a loosely-typed field bag. In the keyed
// shape the map key backs up a missing symbol field; in the array shape there
// is no key and the symbol field is mandatory.
func normalizeEntry(key string, bag map[string]interface{}) (domain.Tick, bool) {
	symbol := stringField(bag, "symbol")
	if symbol == "" {
		symbol = key
	}
	if symbol == "" {
		return domain.Tick{}, false
	}

	tick := domain.Tick{
		Symbol:          symbol,
		Price:           numField(bag, "price"),
		Volume1m:        numField(bag, "volume1m"),
		Volume5m:        numField(bag, "volume5m"),
		Volume15m:       numField(bag, "volume15m"),
		Volume1h:        numField(bag, "volume1h"),
		Volume24h:       numField(bag, "accTradePrice24h"),
		BuyVolume:       numField(bag, "buyVolume"),
		SellVolume:      numField(bag, "sellVolume"),
		Change24h:       numField(bag, "change24h"),
		MarketCap:       numField(bag, "marketCap"),
		MaintenanceRate: numField(bag, "maintenanceRate"),
	}

	// Some upstream drafts send the 24h turnover under its mapped name.
	if tick.Volume24h == nil {
		tick.Volume24h = numField(bag, "volume24h")
	}

	if ts := numField(bag, "timestamp"); ts != nil {
		ms := int64(*ts)
		tick.Timestamp = &ms
	}
	if fav, ok := bag["isFavorite"].(bool); ok {
		tick.IsFavorite = &fav
	}

	return tick, true
}

func stringField(bag map[string]interface{}, name string) string {
	if s, ok := bag[name].(string); ok {
		return s
	}
	return ""
}

// numField returns nil when the field is absent or JSON null, so the merge
// keeps the previous value. Upstream cannot be trusted to send numbers as
// numbers; numeric strings are parsed, anything else coerces to 0.
func numField(bag map[string]interface{}, name string) *float64 {
	raw, ok := bag[name]
	if !ok || raw == nil {
		return nil
	}

	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err == nil {
			v = parsed
		}
	case bool:
		if t {
			v = 1
		}
	}
	return &v
}
