package config

import "fmt"

// SwitchPins are the four GPIO pins a BCD rotary switch is wired to.
type SwitchPins struct {
	Bit0 int
	Bit1 int
	Bit2 int
	Bit3 int
}

// DecodeMap translates a raw 4-bit switch reading into a decimal digit.
// Partial coverage is legal: readings without an entry are invalid codes.
type DecodeMap map[int]int

// Controls are the index and volume ranges shared by both variants.
type Controls struct {
	BankMin    int
	BankMax    int
	StationMin int
	StationMax int
	VolumeMin  int
	VolumeMax  int
	VolumeStep int
}

// RotaryConfig is the typed projection of a validated rotary-variant tree.
type RotaryConfig struct {
	VolumeI2CAddress int

	StationSwitch    SwitchPins
	BankSwitch       SwitchPins
	BankDecodeMap    DecodeMap
	StationDecodeMap DecodeMap

	VolumeEncoder int
	Controls      Controls
	VolumeButton  ButtonAction

	// Timing, in seconds. Optional fields fall back to their defaults.
	SwitchPollInterval     float64
	SwitchDebounce         float64
	SwitchStabilityWindow  float64
	InvalidCodeLogInterval float64
}

// EncoderOledConfig is the typed projection of a validated legacy tree.
type EncoderOledConfig struct {
	EncoderI2CAddress int
	OledI2CAddress    int
	Controls          Controls
}

// DecodeRotary projects a hardware-config tree into a RotaryConfig.
// The tree must have passed ValidateHardware for the rotary variant;
// decoding is not a second validation pass and only reports problems that
// make projection impossible.
func DecodeRotary(tree any) (RotaryConfig, error) {
	var out RotaryConfig

	cfg, ok := asMapping(tree)
	if !ok {
		return out, fmt.Errorf("hardware config must be a mapping")
	}

	i2c, _ := asMapping(cfg["i2c"])
	addr, err := ParseI2CAddress(i2c["volume_i2c_address"])
	if err != nil {
		return out, fmt.Errorf("i2c.volume_i2c_address: %w", err)
	}
	out.VolumeI2CAddress = addr

	switches, _ := asMapping(cfg["switches"])
	out.StationSwitch = decodeSwitchPins(switches["station_switch"])
	out.BankSwitch = decodeSwitchPins(switches["bank_switch"])
	out.BankDecodeMap = decodeDecodeMap(switches["bank_decode_map"])
	out.StationDecodeMap = decodeDecodeMap(switches["station_decode_map"])

	encoders, _ := asMapping(cfg["encoders"])
	out.VolumeEncoder, _ = asInt(encoders["volume_encoder"])

	out.Controls = decodeControls(cfg["controls"])

	buttons, _ := asMapping(cfg["buttons"])
	action, _ := buttons["volume_button"].(string)
	out.VolumeButton = ButtonAction(action)

	polling, _ := asMapping(cfg["polling"])
	out.SwitchPollInterval, _ = asNumber(polling["switch_poll_interval"])
	out.SwitchDebounce, _ = asNumber(polling["switch_debounce"])
	out.SwitchStabilityWindow = numberOr(polling, "switch_stability_window", defaultStabilityWindow)
	out.InvalidCodeLogInterval = numberOr(polling, "invalid_code_log_interval", defaultInvalidLogInterval)

	return out, nil
}

// DecodeEncoderOled projects a hardware-config tree into an
// EncoderOledConfig. Same contract as DecodeRotary: validate first.
func DecodeEncoderOled(tree any) (EncoderOledConfig, error) {
	var out EncoderOledConfig

	cfg, ok := asMapping(tree)
	if !ok {
		return out, fmt.Errorf("hardware config must be a mapping")
	}

	i2c, _ := asMapping(cfg["i2c"])
	addr, err := ParseI2CAddress(i2c["encoder_i2c_address"])
	if err != nil {
		return out, fmt.Errorf("i2c.encoder_i2c_address: %w", err)
	}
	out.EncoderI2CAddress = addr

	addr, err = ParseI2CAddress(i2c["oled_i2c_address"])
	if err != nil {
		return out, fmt.Errorf("i2c.oled_i2c_address: %w", err)
	}
	out.OledI2CAddress = addr

	out.Controls = decodeControls(cfg["controls"])
	return out, nil
}

func decodeSwitchPins(v any) SwitchPins {
	sw, _ := asMapping(v)
	var pins SwitchPins
	pins.Bit0, _ = asInt(sw["bit0"])
	pins.Bit1, _ = asInt(sw["bit1"])
	pins.Bit2, _ = asInt(sw["bit2"])
	pins.Bit3, _ = asInt(sw["bit3"])
	return pins
}

func decodeDecodeMap(v any) DecodeMap {
	m, ok := asMapping(v)
	if !ok {
		return nil
	}
	out := make(DecodeMap, len(m))
	for k, val := range m {
		code, okK := asInt(k)
		digit, okV := asInt(val)
		if okK && okV {
			out[code] = digit
		}
	}
	return out
}

func decodeControls(v any) Controls {
	controls, _ := asMapping(v)
	var c Controls
	c.BankMin, _ = asInt(controls["bank_min"])
	c.BankMax, _ = asInt(controls["bank_max"])
	c.StationMin, _ = asInt(controls["station_min"])
	c.StationMax, _ = asInt(controls["station_max"])
	c.VolumeMin, _ = asInt(controls["volume_min"])
	c.VolumeMax, _ = asInt(controls["volume_max"])
	c.VolumeStep, _ = asInt(controls["volume_step"])
	return c
}

func numberOr(m map[any]any, key string, def float64) float64 {
	if raw, ok := m[key]; ok {
		if v, ok := asNumber(raw); ok {
			return v
		}
	}
	return def
}
