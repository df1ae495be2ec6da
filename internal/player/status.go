// Package player interprets the playback daemon's CLI output. The daemon
// itself (MPD) is an external collaborator; this only parses what `mpc`
// prints.
package player

import (
	"regexp"
	"strconv"
	"strings"
)

var volumeRe = regexp.MustCompile(`volume:\s*(\d+)%`)

// Status is the parsed snapshot of `mpc current` + `mpc status` output.
type Status struct {
	CurrentTrack string `json:"current_track"`
	IsPlaying    bool   `json:"is_playing"`
	IsPaused     bool   `json:"is_paused"`
	Volume       int    `json:"volume"`
}

// Parse builds a Status from the two command outputs. The volume defaults
// to 50 when mpc does not report one (e.g. output disabled).
func Parse(currentOut, statusOut string) Status {
	st := Status{
		CurrentTrack: strings.TrimSpace(currentOut),
		IsPlaying:    strings.Contains(statusOut, "[playing]"),
		IsPaused:     strings.Contains(statusOut, "[paused]"),
		Volume:       50,
	}
	if m := volumeRe.FindStringSubmatch(statusOut); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			st.Volume = v
		}
	}
	return st
}
