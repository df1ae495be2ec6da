package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ServerSettings configure the HTTP backend.
type ServerSettings struct {
	Port           string   `json:"port"`
	WebFilesDir    string   `json:"web_files_dir"`
	DefaultPage    string   `json:"default_page"`
	SetupPage      string   `json:"setup_page"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// RadioSettings configure the playback control plane.
type RadioSettings struct {
	Variant            string  `json:"variant"` // "rotary" or "encoder_oled"
	HardwareConfigFile string  `json:"hardware_config_file"`
	StationsConfigFile string  `json:"stations_config_file"`
	StateFile          string  `json:"state_file"`
	RadioPlayCmd       string  `json:"radio_play_cmd"`
	AllowShutdown      bool    `json:"allow_shutdown"`
	CommandTimeout     string  `json:"command_timeout"`
	ApplyTimeout       string  `json:"apply_timeout"`
	RateLimit          float64 `json:"command_rate_limit"`
	RateBurst          int     `json:"command_rate_burst"`
}

// SetupSettings configure the provisioning workflow.
type SetupSettings struct {
	MarkerFile string `json:"marker_file"`
	ApplyCmd   string `json:"apply_cmd"`
}

// MQTTSettings configure the optional MQTT bridge.
type MQTTSettings struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"` // tcp://IP:PORT
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// Settings is the appliance settings root.
type Settings struct {
	Server ServerSettings `json:"server"`
	Radio  RadioSettings  `json:"radio"`
	Setup  SetupSettings  `json:"setup"`
	MQTT   MQTTSettings   `json:"mqtt"`

	SchedulesFile string `json:"schedules_file"`
}

// LoadSettings reads the settings file, parses the JSON and applies
// sanitization, defaults and validation. A missing file yields defaults.
func LoadSettings(path string) (*Settings, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := &Settings{}
			s.setDefaults()
			return s, nil
		}
		return nil, fmt.Errorf("failed to open settings file '%s': %w", path, err)
	}
	defer file.Close()

	s := &Settings{}
	if err := json.NewDecoder(file).Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings json: %w", err)
	}

	s.sanitize()
	s.setDefaults()

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) sanitize() {
	s.Server.Port = strings.TrimSpace(s.Server.Port)
	s.Server.WebFilesDir = strings.TrimSpace(s.Server.WebFilesDir)
	s.Radio.Variant = strings.TrimSpace(s.Radio.Variant)
	s.Radio.HardwareConfigFile = strings.TrimSpace(s.Radio.HardwareConfigFile)
	s.Radio.StationsConfigFile = strings.TrimSpace(s.Radio.StationsConfigFile)
	s.Radio.StateFile = strings.TrimSpace(s.Radio.StateFile)
	s.Radio.RadioPlayCmd = strings.TrimSpace(s.Radio.RadioPlayCmd)
	s.SchedulesFile = strings.TrimSpace(s.SchedulesFile)
}

func (s *Settings) setDefaults() {
	if s.Server.Port == "" {
		s.Server.Port = "8080"
	}
	if s.Server.WebFilesDir == "" {
		s.Server.WebFilesDir = "./web"
	}
	if s.Server.DefaultPage == "" {
		s.Server.DefaultPage = "radio.html"
	}
	if s.Server.SetupPage == "" {
		s.Server.SetupPage = "setup.html"
	}
	if len(s.Server.AllowedOrigins) == 0 {
		s.Server.AllowedOrigins = []string{"http://localhost:8080"}
	}

	if s.Radio.Variant == "" {
		s.Radio.Variant = string(VariantRotary)
	}
	if s.Radio.HardwareConfigFile == "" {
		s.Radio.HardwareConfigFile = "/home/radio/hardware-config.yaml"
	}
	if s.Radio.StationsConfigFile == "" {
		s.Radio.StationsConfigFile = "/home/radio/stations.yaml"
	}
	if s.Radio.StateFile == "" {
		s.Radio.StateFile = "/home/radio/.radio-state"
	}
	if s.Radio.RadioPlayCmd == "" {
		s.Radio.RadioPlayCmd = "radio-play"
	}
	if s.Radio.CommandTimeout == "" {
		s.Radio.CommandTimeout = "10s"
	}
	if s.Radio.ApplyTimeout == "" {
		s.Radio.ApplyTimeout = "60s"
	}
	if s.Radio.RateLimit <= 0 {
		s.Radio.RateLimit = 5.0
	}
	if s.Radio.RateBurst <= 0 {
		s.Radio.RateBurst = 5
	}

	if s.Setup.MarkerFile == "" {
		s.Setup.MarkerFile = "/var/lib/radio/setup-mode"
	}
	if s.Setup.ApplyCmd == "" {
		s.Setup.ApplyCmd = "/usr/bin/sudo /usr/local/lib/radio/apply-network-config"
	}

	if s.SchedulesFile == "" {
		s.SchedulesFile = "schedules.json"
	}

	if s.MQTT.Broker == "" {
		s.MQTT.Broker = "tcp://localhost:1883"
	}
	if s.MQTT.ClientID == "" {
		s.MQTT.ClientID = "radio-controller"
	}
	if s.MQTT.TopicPrefix == "" {
		s.MQTT.TopicPrefix = "radio"
	}
}

func (s *Settings) validate() error {
	switch Variant(s.Radio.Variant) {
	case VariantRotary, VariantEncoderOled:
	default:
		return fmt.Errorf("settings error: unknown hardware variant %q", s.Radio.Variant)
	}
	if s.Radio.RateLimit <= 0 {
		return fmt.Errorf("settings error: 'command_rate_limit' must be positive")
	}
	return nil
}
