package core

import "sync"

// PlaybackState is the in-memory snapshot of what the radio is doing,
// mirrored from the persistent state record and the playback daemon. The
// persistent record stays the source of truth; this exists so the HTTP
// and MQTT surfaces can answer without touching the file on every read.
type PlaybackState struct {
	mu             sync.RWMutex
	CurrentBank    int
	CurrentStation int
	BankName       string
	StationName    string
	Playback       string // "playing", "paused", "stopped"
	Volume         int
}

// NewPlaybackState creates an empty snapshot.
func NewPlaybackState() *PlaybackState {
	return &PlaybackState{Playback: "stopped", Volume: 50}
}

// Clone returns a copy of the current state for safe reading.
func (s *PlaybackState) Clone() PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PlaybackState{
		CurrentBank:    s.CurrentBank,
		CurrentStation: s.CurrentStation,
		BankName:       s.BankName,
		StationName:    s.StationName,
		Playback:       s.Playback,
		Volume:         s.Volume,
	}
}

// SetStation updates the current bank/station selection.
func (s *PlaybackState) SetStation(bank, station int, bankName, stationName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentBank = bank
	s.CurrentStation = station
	s.BankName = bankName
	s.StationName = stationName
}

// SetPlayback updates the playback state string.
func (s *PlaybackState) SetPlayback(playback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Playback = playback
}

// SetVolume updates the volume.
func (s *PlaybackState) SetVolume(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Volume = volume
}
