package server

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Provisioning: while the setup marker file exists the appliance is in
// first-boot mode and accepts a one-shot network configuration, applied by
// an external privileged helper.

var hostnameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// SetupPayload is the validated provisioning request.
type SetupPayload struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	Hostname string `json:"hostname"`
}

// validateSetupPayload normalizes and checks a provisioning request,
// returning per-field error messages for anything wrong.
func validateSetupPayload(data map[string]any) (SetupPayload, map[string]string) {
	fieldErrors := make(map[string]string)

	payload := SetupPayload{
		SSID:     strings.TrimSpace(asString(data["ssid"])),
		Password: asString(data["password"]),
		Hostname: strings.ToLower(strings.TrimSpace(asString(data["hostname"]))),
	}

	if payload.SSID == "" {
		fieldErrors["ssid"] = "SSID is required"
	} else if len(payload.SSID) > 32 {
		fieldErrors["ssid"] = "SSID must be 32 characters or less"
	}

	if len(payload.Password) < 8 {
		fieldErrors["password"] = "Password must be at least 8 characters"
	} else if len(payload.Password) > 63 {
		fieldErrors["password"] = "Password must be 63 characters or less"
	}

	if payload.Hostname == "" {
		fieldErrors["hostname"] = "Hostname is required"
	} else if len(payload.Hostname) > 63 || !hostnameRe.MatchString(payload.Hostname) {
		fieldErrors["hostname"] = "Hostname must be lowercase letters, numbers, hyphens, and 63 chars max"
	}

	if len(fieldErrors) == 0 {
		fieldErrors = nil
	}
	return payload, fieldErrors
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// isSetupMode reports whether the setup marker file exists.
func isSetupMode(markerFile string) bool {
	_, err := os.Stat(markerFile)
	return err == nil
}
