// Package state persists the small flat record the appliance shares
// between the physical-control loop and the HTTP backend: current bank and
// station, their display names, playback state and last volume.
package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Keys present in the state record. Values are untyped text; consumers
// parse on read.
const (
	KeyCurrentBank    = "current_bank"
	KeyCurrentStation = "current_station"
	KeyBankName       = "bank_name"
	KeyStationName    = "station_name"
	KeyPlaybackState  = "playback_state"
	KeyLastVolume     = "last_volume"
)

// Record is a flat string-to-string state mapping.
type Record map[string]string

// Get returns the value for key, or def when absent.
func (r Record) Get(key, def string) string {
	if v, ok := r[key]; ok {
		return v
	}
	return def
}

// GetInt returns the value for key parsed as an integer, or def when the
// key is absent or not numeric.
func (r Record) GetInt(key string, def int) int {
	v, ok := r[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Store reads and writes the state file.
//
// Write is a read-modify-write over a shared file with no locking and no
// atomic replace: the physical-control loop and the HTTP backend racing on
// the same file can interleave and lose an update. That is an accepted,
// documented property of the format, matching what the rest of the
// appliance tooling does.
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Read parses the state file. A missing file yields an empty record and no
// error. Blank lines and lines starting with '#' are skipped; a line is a
// pair only if it contains '='; keys and values are trimmed; on duplicate
// keys the last occurrence wins.
func (s *Store) Read() (Record, error) {
	record := Record{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return record, nil
		}
		return nil, fmt.Errorf("failed to read state file '%s': %w", s.path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		key, value, _ := strings.Cut(line, "=")
		record[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return record, nil
}

// ReadStrict is Read without the soft-miss behavior: a missing file is an
// error. The backend's state endpoint reports absence explicitly instead
// of answering with an empty record.
func (s *Store) ReadStrict() (Record, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}
	return s.Read()
}

// Write overlays updates onto the current record and rewrites the whole
// file, preserving keys not present in the update. Values are coerced to
// text and must not contain '=' or newlines; there is no escaping. Line
// order follows map iteration order and carries no guarantee.
func (s *Store) Write(updates map[string]any) error {
	record, err := s.Read()
	if err != nil {
		return err
	}
	for k, v := range updates {
		record[k] = fmt.Sprint(v)
	}

	var sb strings.Builder
	for k, v := range record {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write state file '%s': %w", s.path, err)
	}
	return nil
}
