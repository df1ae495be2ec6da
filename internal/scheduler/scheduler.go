// Package scheduler arms cron-scheduled playback commands (alarms, sleep
// timers). Entries are command strings that must pass the same whitelist
// as remotely issued commands, and execution is funneled through the
// agent's command channel so it shares the serialized executor.
package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"radio-controller/internal/command"
	"radio-controller/internal/core"
)

// Entry defines the structure for a saved schedule.
type Entry struct {
	Spec    string `json:"spec"`
	Command string `json:"command"`
}

// Scheduler manages all cron-related tasks.
type Scheduler struct {
	cron           *cron.Cron
	store          map[cron.EntryID]Entry
	commandChannel core.CommandChannel
	auth           *command.Authorizer
	mu             sync.RWMutex
	schedulesFile  string
	log            zerolog.Logger
}

// NewScheduler creates a scheduler and re-arms any persisted entries.
func NewScheduler(cmdChan core.CommandChannel, auth *command.Authorizer, schedulesFile string, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		cron:           cron.New(),
		store:          make(map[cron.EntryID]Entry),
		commandChannel: cmdChan,
		auth:           auth,
		schedulesFile:  schedulesFile,
		log:            log,
	}
	s.load()
	return s
}

// Start begins the cron ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("cron scheduler started")
}

// Stop halts the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("cron scheduler stopped")
}

// Add arms a new scheduled command. Commands outside the whitelist are
// rejected here, at definition time, not silently at fire time.
func (s *Scheduler) Add(spec, cmd string) error {
	if !s.auth.IsAllowed(cmd) {
		return fmt.Errorf("refusing to schedule non-whitelisted command: %s", cmd)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.fire(cmd) })
	if err != nil {
		return fmt.Errorf("invalid schedule spec '%s': %w", spec, err)
	}
	s.store[id] = Entry{Spec: spec, Command: cmd}
	s.save()
	s.log.Info().Int("id", int(id)).Str("spec", spec).Str("command", cmd).Msg("added schedule")
	return nil
}

// Remove deletes a scheduled command.
func (s *Scheduler) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := cron.EntryID(id)
	s.cron.Remove(entryID)
	delete(s.store, entryID)
	s.save()
	s.log.Info().Int("id", id).Msg("removed schedule")
}

// GetAll returns a copy of the current schedules.
func (s *Scheduler) GetAll() map[cron.EntryID]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[cron.EntryID]Entry, len(s.store))
	for k, v := range s.store {
		out[k] = v
	}
	return out
}

func (s *Scheduler) fire(cmd string) {
	s.log.Info().Str("command", cmd).Msg("executing scheduled command")
	s.commandChannel <- core.Command{
		Type:    core.CmdExecute,
		Payload: map[string]interface{}{"command": cmd},
	}
}

func (s *Scheduler) save() {
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("error marshalling schedules")
		return
	}
	if err := os.WriteFile(s.schedulesFile, data, 0o644); err != nil {
		s.log.Error().Err(err).Msg("error writing schedule file")
	}
}

func (s *Scheduler) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.schedulesFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error().Err(err).Msg("error reading schedule file")
		}
		return
	}

	saved := make(map[cron.EntryID]Entry)
	if err := json.Unmarshal(data, &saved); err != nil {
		s.log.Error().Err(err).Msg("error unmarshalling schedule file")
		return
	}

	s.log.Info().Int("count", len(saved)).Str("file", s.schedulesFile).Msg("loading schedules")
	for _, entry := range saved {
		jobEntry := entry
		if !s.auth.IsAllowed(jobEntry.Command) {
			s.log.Warn().Str("command", jobEntry.Command).Msg("dropping persisted schedule outside whitelist")
			continue
		}
		newID, err := s.cron.AddFunc(jobEntry.Spec, func() { s.fire(jobEntry.Command) })
		if err != nil {
			s.log.Error().Err(err).Str("spec", jobEntry.Spec).Msg("error re-adding schedule")
			continue
		}
		s.store[newID] = jobEntry
	}
}
