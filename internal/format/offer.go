// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package format

import (
	"fmt"

	"github.com/ManuGH/ytaudio/internal/media"
)

// Offer is a tier that fits the budget, with its estimated size.
type Offer struct {
	Tier           Tier
	EstimatedBytes int64
	Exact          bool // size was reported by the source, not estimated
}

// Offers lists every tier whose own estimate fits maxBytes, in catalog order.
func Offers(d media.Descriptor, maxBytes int64) []Offer {
	var out []Offer
	for _, t := range catalog {
		size := EstimateSize(t, d)
		if size > maxBytes {
			continue
		}
		out = append(out, Offer{
			Tier:           t,
			EstimatedBytes: size,
			Exact:          t.IsOriginal() && d.HasKnownSize(),
		})
	}
	return out
}

// Label renders the offer for a selection button.
func (o Offer) Label() string {
	size := float64(o.EstimatedBytes) / (1024 * 1024)
	if o.Tier.IsOriginal() {
		if o.Exact {
			return fmt.Sprintf("⭐ %s (%.1f MB)", o.Tier.Label, size)
		}
		return fmt.Sprintf("⭐ %s (~%.1f MB)", o.Tier.Label, size)
	}
	return fmt.Sprintf("📦 %s (~%.1f MB)", o.Tier.Label, size)
}
