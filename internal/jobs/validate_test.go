// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http://youtube.com/watch?v=dQw4w9WgXcQ&t=42", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", true},
		{"  https://youtu.be/dQw4w9WgXcQ  ", true},
		{"", false},
		{"dQw4w9WgXcQ", false},
		{"ftp://youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"https://vimeo.com/12345", false},
		{"https://youtube.com.evil.org/watch?v=dQw4w9WgXcQ", false},
		{"https://user@youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=short", false},
		{"https://www.youtube.com/playlist?list=PL123", false},
		{"https://youtu.be/", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&x=" + strings.Repeat("a", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := ValidateURL(tt.url, nil, 0)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, KindValidation)
		})
	}
}

func TestValidateURLCustomHosts(t *testing.T) {
	_, err := ValidateURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ", []string{"youtu.be"}, 0)
	assert.ErrorIs(t, err, KindValidation)

	got, err := ValidateURL(" https://youtu.be/dQw4w9WgXcQ", []string{"youtu.be"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", got)
}
