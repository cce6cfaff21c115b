// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytaudio/internal/media"
)

const budget = 50 * 1024 * 1024

func TestCatalogOrder(t *testing.T) {
	tiers := Tiers()
	require.NotEmpty(t, tiers)
	assert.True(t, tiers[0].IsOriginal(), "Original must be first")

	for i := 2; i < len(tiers); i++ {
		assert.Less(t, tiers[i].BitrateKbps, tiers[i-1].BitrateKbps,
			"tiers must be ordered least to most compressed")
	}

	// Returned slice is a copy.
	tiers[0].Label = "mutated"
	assert.Equal(t, "Original quality", Tiers()[0].Label)
}

func TestEstimateSize(t *testing.T) {
	orig, _ := Lookup("ORIGINAL")
	opus48, _ := Lookup("OPUS_48")

	tests := []struct {
		name string
		tier Tier
		desc media.Descriptor
		want int64
	}{
		{"original uses formula without size", orig, media.Descriptor{DurationSeconds: 600, BitrateKbps: 128, SizeBytes: media.UnknownSize}, 9_600_000},
		{"original prefers known size", orig, media.Descriptor{DurationSeconds: 600, BitrateKbps: 128, SizeBytes: 1234}, 1234},
		{"lossy ignores descriptor bitrate", opus48, media.Descriptor{DurationSeconds: 18000, BitrateKbps: 160, SizeBytes: 5}, 108_000_000},
		{"zero duration", opus48, media.Descriptor{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateSize(tt.tier, tt.desc))
		})
	}
}

func TestSelect(t *testing.T) {
	t.Run("short video keeps original", func(t *testing.T) {
		tier, ok := Select(media.Descriptor{DurationSeconds: 600, BitrateKbps: 128, SizeBytes: media.UnknownSize}, budget)
		require.True(t, ok)
		assert.Equal(t, Original, tier.ID)
	})

	t.Run("five hours fits nothing", func(t *testing.T) {
		_, ok := Select(media.Descriptor{DurationSeconds: 18000, BitrateKbps: 128, SizeBytes: media.UnknownSize}, budget)
		assert.False(t, ok)
	})

	t.Run("falls through to first fitting lossy tier", func(t *testing.T) {
		// 1h at 160 kbps = 72 MB original; 96 kbps = 43.2 MB fits.
		tier, ok := Select(media.Descriptor{DurationSeconds: 3600, BitrateKbps: 160, SizeBytes: media.UnknownSize}, budget)
		require.True(t, ok)
		assert.Equal(t, Opus96, tier.ID)
	})

	t.Run("exact boundary fits", func(t *testing.T) {
		d := media.Descriptor{DurationSeconds: 600, BitrateKbps: 128, SizeBytes: media.UnknownSize}
		tier, ok := Select(d, 9_600_000)
		require.True(t, ok)
		assert.Equal(t, Original, tier.ID)
	})
}

// Select must return the first tier whose estimate fits, for any budget.
func TestSelectMatchesFirstFit(t *testing.T) {
	d := media.Descriptor{DurationSeconds: 5400, BitrateKbps: 140, SizeBytes: media.UnknownSize}
	for b := int64(0); b <= 120_000_000; b += 1_000_000 {
		tier, ok := Select(d, b)

		var want *Tier
		for _, candidate := range Tiers() {
			if EstimateSize(candidate, d) <= b {
				c := candidate
				want = &c
				break
			}
		}
		if want == nil {
			assert.False(t, ok, "budget %d", b)
			last := Tiers()[len(Tiers())-1]
			assert.Greater(t, EstimateSize(last, d), b)
			continue
		}
		require.True(t, ok, "budget %d", b)
		assert.Equal(t, want.ID, tier.ID, "budget %d", b)
	}
}

func TestOffers(t *testing.T) {
	d := media.Descriptor{DurationSeconds: 3600, BitrateKbps: 160, SizeBytes: media.UnknownSize}
	offers := Offers(d, budget)

	got := make([]ID, 0, len(offers))
	for _, o := range offers {
		got = append(got, o.Tier.ID)
	}
	if diff := cmp.Diff([]ID{Opus96, Opus64, Opus48}, got); diff != "" {
		t.Errorf("offers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(43_200_000), offers[0].EstimatedBytes)
	assert.Equal(t, "📦 Opus 96 kbps (~41.2 MB)", offers[0].Label())
}

func TestOfferLabelOriginal(t *testing.T) {
	d := media.Descriptor{DurationSeconds: 600, BitrateKbps: 128, SizeBytes: 3 * 1024 * 1024}
	offers := Offers(d, budget)
	require.NotEmpty(t, offers)
	assert.True(t, offers[0].Exact)
	assert.Equal(t, "⭐ Original quality (3.0 MB)", offers[0].Label())
}

func TestLookup(t *testing.T) {
	tier, ok := Lookup("opus_64")
	require.True(t, ok)
	assert.Equal(t, 64, tier.BitrateKbps)

	_, ok = Lookup("mp3_320")
	assert.False(t, ok)
}

func TestExtension(t *testing.T) {
	orig, _ := Lookup("ORIGINAL")
	opus, _ := Lookup("OPUS_48")
	assert.Equal(t, "webm", orig.Extension(media.Descriptor{Container: "webm"}))
	assert.Equal(t, "m4a", orig.Extension(media.Descriptor{}))
	assert.Equal(t, "opus", opus.Extension(media.Descriptor{Container: "webm"}))
}
