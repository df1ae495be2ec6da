package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSetupPayloadValid(t *testing.T) {
	payload, fieldErrors := validateSetupPayload(map[string]any{
		"ssid":     "  Home Network  ",
		"password": "hunter2hunter2",
		"hostname": "  Radio-Kitchen  ",
	})
	require.Nil(t, fieldErrors)
	assert.Equal(t, "Home Network", payload.SSID)
	assert.Equal(t, "hunter2hunter2", payload.Password)
	// Hostname is normalized to lowercase.
	assert.Equal(t, "radio-kitchen", payload.Hostname)
}

func TestValidateSetupPayloadFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  map[string]any
		field string
	}{
		{"missing ssid", map[string]any{"password": "12345678", "hostname": "radio"}, "ssid"},
		{"long ssid", map[string]any{"ssid": strings.Repeat("x", 33), "password": "12345678", "hostname": "radio"}, "ssid"},
		{"short password", map[string]any{"ssid": "net", "password": "1234567", "hostname": "radio"}, "password"},
		{"long password", map[string]any{"ssid": "net", "password": strings.Repeat("p", 64), "hostname": "radio"}, "password"},
		{"missing hostname", map[string]any{"ssid": "net", "password": "12345678"}, "hostname"},
		{"hostname leading hyphen", map[string]any{"ssid": "net", "password": "12345678", "hostname": "-radio"}, "hostname"},
		{"hostname underscore", map[string]any{"ssid": "net", "password": "12345678", "hostname": "radio_1"}, "hostname"},
		{"hostname too long", map[string]any{"ssid": "net", "password": "12345678", "hostname": strings.Repeat("a", 64)}, "hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fieldErrors := validateSetupPayload(tt.data)
			require.NotNil(t, fieldErrors)
			assert.Contains(t, fieldErrors, tt.field)
		})
	}
}

func TestValidateSetupPayloadSingleCharHostname(t *testing.T) {
	_, fieldErrors := validateSetupPayload(map[string]any{
		"ssid": "net", "password": "12345678", "hostname": "a",
	})
	assert.Nil(t, fieldErrors)
}

func TestValidateSetupPayloadCollectsAllErrors(t *testing.T) {
	_, fieldErrors := validateSetupPayload(map[string]any{})
	require.NotNil(t, fieldErrors)
	assert.Len(t, fieldErrors, 3)
}

func TestIsSetupMode(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "setup-mode")
	assert.False(t, isSetupMode(marker))
	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	assert.True(t, isSetupMode(marker))
}
