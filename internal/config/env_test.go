// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		envSet bool
		want   string
	}{
		{name: "set", value: "from-env", envSet: true, want: "from-env"},
		{name: "unset", want: "default"},
		{name: "empty", value: "", envSet: true, want: "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_STRING", tt.value)
			}
			assert.Equal(t, tt.want, ParseString("TEST_STRING", "default"))
		})
	}
}

func TestParseTyped(t *testing.T) {
	t.Setenv("T_INT", "7")
	t.Setenv("T_BAD_INT", "seven")
	t.Setenv("T_INT64", "52428800")
	t.Setenv("T_BOOL", "YES")
	t.Setenv("T_BAD_BOOL", "maybe")
	t.Setenv("T_DUR", "45m")
	t.Setenv("T_SECS", "90")
	t.Setenv("T_FLOAT", "0.25")

	assert.Equal(t, 7, ParseInt("T_INT", 1))
	assert.Equal(t, 1, ParseInt("T_BAD_INT", 1))
	assert.Equal(t, int64(52428800), ParseInt64("T_INT64", 0))
	assert.True(t, ParseBool("T_BOOL", false))
	assert.True(t, ParseBool("T_BAD_BOOL", true))
	assert.Equal(t, 45*time.Minute, ParseDuration("T_DUR", time.Minute))
	assert.Equal(t, 90*time.Second, ParseSeconds("T_SECS", time.Second))
	assert.InDelta(t, 0.25, ParseFloat("T_FLOAT", 1), 1e-9)
}

func TestParseLists(t *testing.T) {
	t.Setenv("T_LIST", " a, ,b ,c")
	t.Setenv("T_IDS", "1, 22,-3")
	t.Setenv("T_BAD_IDS", "1,x")

	assert.Equal(t, []string{"a", "b", "c"}, ParseList("T_LIST", nil))
	assert.Equal(t, []int64{1, 22, -3}, ParseInt64List("T_IDS", nil))
	assert.Equal(t, []int64{9}, ParseInt64List("T_BAD_IDS", []int64{9}))
}
