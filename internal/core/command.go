package core

// CommandType defines the type of command being dispatched.
type CommandType string

const (
	// CmdExecute runs a whitelisted command string through the executor.
	CmdExecute CommandType = "execute"
	// CmdRefreshState re-reads the state file and publishes a state event.
	CmdRefreshState CommandType = "refreshState"
	// CmdReloadConfig reloads and revalidates the configuration files.
	CmdReloadConfig CommandType = "reloadConfig"
)

// Command is the envelope for requests flowing into the agent loop from
// the scheduler, the MQTT bridge and the config watcher.
type Command struct {
	Type    CommandType
	Payload map[string]interface{}
}

// CommandChannel is the single channel the agent listens to for commands.
type CommandChannel chan Command
