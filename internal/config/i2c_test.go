package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseI2CAddress(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{"native int", 0x49, 73},
		{"hex string", "0x49", 73},
		{"hex string uppercase", "0X49", 73},
		{"decimal string", "73", 73},
		{"whitespace trimmed", "  0x49  ", 73},
		{"int64", int64(73), 73},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseI2CAddress(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseI2CAddressTypeMismatch(t *testing.T) {
	_, err := ParseI2CAddress(3.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddressType)
	assert.NotErrorIs(t, err, ErrAddressSyntax)

	_, err = ParseI2CAddress(nil)
	assert.ErrorIs(t, err, ErrAddressType)

	_, err = ParseI2CAddress([]string{"0x49"})
	assert.ErrorIs(t, err, ErrAddressType)
}

func TestParseI2CAddressSyntaxError(t *testing.T) {
	_, err := ParseI2CAddress("0xZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddressSyntax)
	assert.NotErrorIs(t, err, ErrAddressType)

	_, err = ParseI2CAddress("seventy-three")
	assert.ErrorIs(t, err, ErrAddressSyntax)
}
