// Package mqtt bridges the radio to an MQTT broker: playback state out,
// whitelisted command strings in. Inbound commands go through the same
// authorizer path as HTTP ones; the broker is not a trusted party.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"radio-controller/internal/config"
	"radio-controller/internal/core"
)

// Client is the optional MQTT bridge. A nil *Client (MQTT disabled) is a
// valid no-op collaborator.
type Client struct {
	client   mqtt.Client
	settings config.MQTTSettings
	commands core.CommandChannel
	bus      *core.EventBus
	prefix   string
	log      zerolog.Logger
}

// NewClient builds the bridge, or returns nil when MQTT is disabled.
func NewClient(settings config.MQTTSettings, commands core.CommandChannel, bus *core.EventBus, log zerolog.Logger) *Client {
	if !settings.Enabled {
		return nil
	}

	c := &Client{
		settings: settings,
		commands: commands,
		bus:      bus,
		prefix:   settings.TopicPrefix,
		log:      log,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(settings.ClientID)
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)

	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetWill(c.topic("availability"), "offline", 1, true)

	opts.OnConnect = func(client mqtt.Client) {
		c.log.Info().Str("broker", settings.Broker).Msg("mqtt connected")
		client.Publish(c.topic("availability"), 1, true, "online")

		token := client.Subscribe(c.topic("command/set"), 1, c.onCommand)
		if token.Wait() && token.Error() != nil {
			c.log.Error().Err(token.Error()).Msg("mqtt subscribe failed")
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.log.Warn().Err(err).Msg("mqtt connection lost")
	}

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect dials the broker. Retries are handled by the paho options.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Run forwards state-changed events to the broker until the context ends.
func (c *Client) Run(ctx context.Context) {
	sub := c.bus.Subscribe(core.StateChangedEvent)
	defer c.bus.Unsubscribe(sub, core.StateChangedEvent)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub:
			data, err := json.Marshal(event.Payload)
			if err != nil {
				c.log.Warn().Err(err).Msg("cannot marshal state for mqtt")
				continue
			}
			c.client.Publish(c.topic("state"), 1, true, data)
		}
	}
}

// Disconnect announces unavailability and closes the connection.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Publish(c.topic("availability"), 1, true, "offline")
		c.client.Disconnect(250)
	}
}

// onCommand feeds a received command string into the agent loop. The
// payload is the raw command; authorization happens in the executor, same
// as for every other surface.
func (c *Client) onCommand(_ mqtt.Client, msg mqtt.Message) {
	cmd := string(msg.Payload())
	c.log.Info().Str("command", cmd).Msg("mqtt command received")
	select {
	case c.commands <- core.Command{
		Type:    core.CmdExecute,
		Payload: map[string]interface{}{"command": cmd},
	}:
	default:
		c.log.Warn().Msg("command channel full, dropping mqtt command")
	}
}

func (c *Client) topic(suffix string) string {
	return c.prefix + "/" + suffix
}
