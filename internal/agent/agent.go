// Package agent wires the appliance together and owns the central command
// loop: every non-HTTP surface (scheduler, MQTT, config watcher) feeds one
// channel consumed by one goroutine.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"radio-controller/internal/command"
	"radio-controller/internal/config"
	"radio-controller/internal/core"
	"radio-controller/internal/mqtt"
	"radio-controller/internal/scheduler"
	"radio-controller/internal/server"
	"radio-controller/internal/state"
)

type Agent struct {
	ctx      context.Context
	cancel   context.CancelFunc
	settings *config.Settings
	wg       sync.WaitGroup
	log      zerolog.Logger

	playback *core.PlaybackState
	bus      *core.EventBus
	commands core.CommandChannel

	executor  *command.Executor
	store     *state.Store
	server    *server.Server
	scheduler *scheduler.Scheduler
	mqtt      *mqtt.Client
	watcher   *config.Watcher

	mu        sync.RWMutex
	directory config.Directory
}

// NewAgent builds the appliance from its settings. Invalid domain config
// is logged in full and degraded to empty rather than refusing to start:
// a radio with a broken stations file should still serve its UI so the
// file can be fixed remotely.
func NewAgent(settings *config.Settings, log zerolog.Logger) (*Agent, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		ctx:      ctx,
		cancel:   cancel,
		settings: settings,
		log:      log,
		playback: core.NewPlaybackState(),
		bus:      core.NewEventBus(),
		commands: make(core.CommandChannel, 20),
	}

	cmdTimeout, err := time.ParseDuration(settings.Radio.CommandTimeout)
	if err != nil {
		cmdTimeout = 10 * time.Second
	}
	auth := command.NewAuthorizer(settings.Radio.RadioPlayCmd, settings.Radio.AllowShutdown)
	a.executor = command.NewExecutor(auth, cmdTimeout, log.With().Str("component", "executor").Logger())

	a.store = state.NewStore(settings.Radio.StateFile)

	a.reloadConfigs()

	a.scheduler = scheduler.NewScheduler(a.commands, auth, settings.SchedulesFile,
		log.With().Str("component", "scheduler").Logger())

	a.server = server.NewServer(settings, a.executor, a.store, a.scheduler, a.bus,
		log.With().Str("component", "server").Logger())

	a.mqtt = mqtt.NewClient(settings.MQTT, a.commands, a.bus,
		log.With().Str("component", "mqtt").Logger())

	watcher, err := config.NewWatcher(
		log.With().Str("component", "watcher").Logger(),
		func(string) { a.commands <- core.Command{Type: core.CmdReloadConfig} },
		settings.Radio.HardwareConfigFile,
		settings.Radio.StationsConfigFile,
	)
	if err != nil {
		log.Warn().Err(err).Msg("config watching disabled")
	} else {
		a.watcher = watcher
	}

	return a, nil
}

// Directory returns the current stations directory snapshot.
func (a *Agent) Directory() config.Directory {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.directory
}

// reloadConfigs loads and revalidates the hardware and stations files.
// Every issue is logged; an invalid stations file does not replace the
// last good directory.
func (a *Agent) reloadConfigs() {
	variant := config.Variant(a.settings.Radio.Variant)

	hwTree, err := config.Load(a.settings.Radio.HardwareConfigFile)
	if err != nil {
		a.log.Error().Err(err).Msg("cannot load hardware config")
	} else if issues := config.ValidateHardware(hwTree, variant); len(issues) > 0 {
		for _, issue := range issues {
			a.log.Warn().Str("file", a.settings.Radio.HardwareConfigFile).Msg(issue.String())
		}
	}

	stTree, err := config.Load(a.settings.Radio.StationsConfigFile)
	if err != nil {
		a.log.Error().Err(err).Msg("cannot load stations config")
		return
	}
	if issues := config.ValidateStations(stTree); len(issues) > 0 {
		for _, issue := range issues {
			a.log.Warn().Str("file", a.settings.Radio.StationsConfigFile).Msg(issue.String())
		}
		return
	}

	dir := config.LoadDirectory(stTree)
	a.mu.Lock()
	a.directory = dir
	a.mu.Unlock()
	a.log.Info().Int("banks", len(dir.Banks())).Msg("stations directory loaded")
}

// Run starts all services and consumes the command channel until Shutdown.
func (a *Agent) Run() {
	if a.watcher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.watcher.Run(a.ctx)
		}()
	}

	a.scheduler.Start()

	if a.mqtt != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.mqtt.Connect(); err != nil {
				a.log.Error().Err(err).Msg("mqtt setup error")
				return
			}
			a.mqtt.Run(a.ctx)
		}()
	}

	a.log.Info().Str("addr", "http://localhost:"+a.settings.Server.Port).Msg("backend listening")
	go func() {
		if err := a.server.ListenAndServe(); err != nil {
			a.log.Error().Err(err).Msg("server error")
		}
	}()

	a.syncState()

	a.log.Info().Msg("agent ready")
	for {
		select {
		case <-a.ctx.Done():
			a.log.Info().Msg("agent shutting down")
			return
		case cmd := <-a.commands:
			a.handleCommand(cmd)
		}
	}
}

func (a *Agent) handleCommand(cmd core.Command) {
	switch cmd.Type {
	case core.CmdExecute:
		text, _ := cmd.Payload["command"].(string)
		if _, err := a.executor.Execute(a.ctx, text); err != nil {
			a.log.Warn().Str("command", text).Err(err).Msg("command rejected or failed")
			return
		}
		a.syncState()

	case core.CmdRefreshState:
		a.syncState()

	case core.CmdReloadConfig:
		a.reloadConfigs()
		a.bus.Publish(core.Event{Type: core.ConfigReloadedEvent})

	default:
		a.log.Warn().Str("type", string(cmd.Type)).Msg("unknown command type")
	}
}

// syncState mirrors the persistent record into the in-memory snapshot and
// publishes it.
func (a *Agent) syncState() {
	record, err := a.store.Read()
	if err != nil {
		a.log.Warn().Err(err).Msg("cannot read state file")
		return
	}

	a.playback.SetStation(
		record.GetInt(state.KeyCurrentBank, 0),
		record.GetInt(state.KeyCurrentStation, 0),
		record.Get(state.KeyBankName, ""),
		record.Get(state.KeyStationName, ""),
	)
	a.playback.SetPlayback(record.Get(state.KeyPlaybackState, "stopped"))
	a.playback.SetVolume(record.GetInt(state.KeyLastVolume, 50))

	a.bus.Publish(core.Event{Type: core.StateChangedEvent, Payload: a.playback.Clone()})
}

func (a *Agent) Shutdown() {
	a.scheduler.Stop()
	_ = a.server.Shutdown(context.Background())
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	a.cancel()
	a.wg.Wait()
}
