// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{600, "10:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{5025, "1:23:45"},
		{-5, "0:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
			assert.Equal(t, tt.want, Descriptor{DurationSeconds: tt.seconds}.FormattedDuration())
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "unknown", FormatSize(UnknownSize))
	assert.Equal(t, "unknown", FormatSize(0))
	assert.Equal(t, "1.0 MB", FormatSize(1024*1024))
	assert.Equal(t, "9.2 MB", FormatSize(9_600_000))
}

func TestHasKnownSize(t *testing.T) {
	assert.False(t, Descriptor{SizeBytes: UnknownSize}.HasKnownSize())
	assert.True(t, Descriptor{SizeBytes: 10}.HasKnownSize())
}
