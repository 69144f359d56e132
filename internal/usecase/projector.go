package usecase

import (
	"sort"

	"github.com/vitos/coin_alarm/internal/domain"
)

// FilterConfig is the market-cap filter selection. "All" is mutually
// exclusive with the tier flags: selecting it clears them, and clearing the
// last tier re-selects it.
type FilterConfig struct {
	All   bool `json:"all"`
	Large bool `json:"large"`
	Mid   bool `json:"mid"`
	Small bool `json:"small"`
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{All: true}
}

// Toggle flips one flag and re-normalizes the invariant. Unknown keys leave
// the config unchanged.
func (f FilterConfig) Toggle(key string) FilterConfig {
	switch key {
	case "all":
		return FilterConfig{All: true}
	case "large":
		f.Large = !f.Large
	case "mid":
		f.Mid = !f.Mid
	case "small":
		f.Small = !f.Small
	default:
		return f
	}

	f.All = false
	if !f.Large && !f.Mid && !f.Small {
		f.All = true
	}
	return f
}

// matchesMarketCap applies the tier filter. Tiers are independent "at least"
// floors, OR'ed together, so a large-cap coin also passes mid and small when
// those are selected. Unknown market cap (0) fails every tier.
func (f FilterConfig) matchesMarketCap(marketCap float64) bool {
	if f.All {
		return true
	}
	if f.Large && marketCap >= domain.LargeCapFloor {
		return true
	}
	if f.Mid && marketCap >= domain.MidCapFloor {
		return true
	}
	if f.Small && marketCap >= domain.SmallCapFloor {
		return true
	}
	return false
}

// Project computes the display list from a store snapshot: market-cap filter,
// then visibility (favorites or threshold-meeting volume, unless showAll),
// then a stable sort with favorites first and 1m traded value descending
// within each partition. The input slice is not mutated.
func Project(records []domain.CoinRecord, filters FilterConfig, favorites map[string]bool, showAll bool, volumeThreshold float64) []domain.CoinRecord {
	out := make([]domain.CoinRecord, 0, len(records))
	for _, rec := range records {
		if !filters.matchesMarketCap(rec.MarketCap) {
			continue
		}
		if !showAll && !favorites[rec.Symbol] && rec.Volume1m < volumeThreshold {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		iFav, jFav := favorites[out[i].Symbol], favorites[out[j].Symbol]
		if iFav != jFav {
			return iFav
		}
		return out[i].Volume1m > out[j].Volume1m
	})

	return out
}
